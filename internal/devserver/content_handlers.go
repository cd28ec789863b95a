package devserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
	"github.com/innerpath/client-core/internal/core/service"
)

func notFound(c echo.Context, what string) error {
	return fail(c, http.StatusNotFound, what+" not found")
}

// ── Journals ──────────────────────────────────────────────────────────────────

func (s *Server) listJournals(c echo.Context) error {
	return ok(c, http.StatusOK, s.content.listJournals(currentUser(c).ID), "")
}

func (s *Server) createJournal(c echo.Context) error {
	var req ports.JournalInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, s.content.createJournal(currentUser(c).ID, req), "journal created")
}

func (s *Server) updateJournal(c echo.Context) error {
	var req ports.JournalInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	j, err := s.content.updateJournal(currentUser(c).ID, c.Param("id"), req)
	if err != nil {
		return notFound(c, "journal")
	}
	return ok(c, http.StatusOK, j, "journal updated")
}

func (s *Server) deleteJournal(c echo.Context) error {
	if err := s.content.deleteJournal(currentUser(c).ID, c.Param("id")); err != nil {
		return notFound(c, "journal")
	}
	return ok(c, http.StatusOK, nil, "journal deleted")
}

// ── Goals ─────────────────────────────────────────────────────────────────────

func (s *Server) listGoals(c echo.Context) error {
	return ok(c, http.StatusOK, s.content.listGoals(currentUser(c).ID), "")
}

func (s *Server) createGoal(c echo.Context) error {
	var req ports.GoalInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, s.content.createGoal(currentUser(c).ID, req), "goal created")
}

func (s *Server) updateGoal(c echo.Context) error {
	var req ports.GoalInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	g, err := s.content.updateGoal(currentUser(c).ID, c.Param("id"), req)
	if err != nil {
		return notFound(c, "goal")
	}
	return ok(c, http.StatusOK, g, "goal updated")
}

func (s *Server) deleteGoal(c echo.Context) error {
	if err := s.content.deleteGoal(currentUser(c).ID, c.Param("id")); err != nil {
		return notFound(c, "goal")
	}
	return ok(c, http.StatusOK, nil, "goal deleted")
}

// ── Posts ─────────────────────────────────────────────────────────────────────

var errNotAuthor = errors.New("only the author can change this post")

// canEdit reports whether u may change a post written by author.
func canEdit(u domain.User, author string, capability domain.Capability) bool {
	return author == u.ID || service.DeriveAccess(u.Role).Can(capability)
}

func (s *Server) listPosts(c echo.Context) error {
	return ok(c, http.StatusOK, s.content.listPosts(), "")
}

func (s *Server) createPost(c echo.Context) error {
	var req ports.PostInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, s.content.createPost(currentUser(c).ID, req), "post created")
}

func (s *Server) updatePost(c echo.Context) error {
	var req ports.PostInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	u := currentUser(c)
	p, err := s.content.mutatePost(c.Param("id"), func(p *domain.Post) error {
		if !canEdit(u, p.Author, domain.CanEditBlog) {
			return errNotAuthor
		}
		p.Title, p.Content = req.Title, req.Content
		return nil
	})
	return s.postResult(c, p, err, "post updated")
}

func (s *Server) deletePost(c echo.Context) error {
	u := currentUser(c)
	_, err := s.content.mutatePost(c.Param("id"), func(p *domain.Post) error {
		if !canEdit(u, p.Author, domain.CanDeleteBlog) {
			return errNotAuthor
		}
		return nil
	})
	if err == nil {
		err = s.content.deletePost(c.Param("id"))
	}
	return s.postResult(c, nil, err, "post deleted")
}

func (s *Server) likePost(c echo.Context) error {
	id := currentUser(c).ID
	p, err := s.content.mutatePost(c.Param("id"), func(p *domain.Post) error {
		toggleLike(p, id)
		return nil
	})
	return s.postResult(c, p, err, "")
}

func (s *Server) addComment(c echo.Context) error {
	var req ports.CommentInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	author := currentUser(c).ID
	now := s.accounts.now()
	p, err := s.content.mutatePost(c.Param("id"), func(p *domain.Post) error {
		p.Comments = append(p.Comments, domain.Comment{ID: uuid.NewString(), Author: author, Content: req.Content, CreatedAt: now})
		return nil
	})
	return s.postResult(c, p, err, "comment added")
}

func (s *Server) postResult(c echo.Context, p any, err error, msg string) error {
	switch {
	case errors.Is(err, errNotFound):
		return notFound(c, "post")
	case errors.Is(err, errNotAuthor):
		return fail(c, http.StatusForbidden, err.Error())
	case err != nil:
		return err
	}
	return ok(c, http.StatusOK, p, msg)
}

// ── Progress ──────────────────────────────────────────────────────────────────

func (s *Server) listAchievements(c echo.Context) error {
	return ok(c, http.StatusOK, s.content.achievements(currentUser(c).ID), "")
}

func (s *Server) statistics(c echo.Context) error {
	return ok(c, http.StatusOK, s.content.statistics(currentUser(c).ID), "")
}

// ── Admin ─────────────────────────────────────────────────────────────────────

// mayManage reports whether the caller may grant or touch roles. Anything
// above USER needs canManageAdmins.
func mayManage(c echo.Context, roles ...domain.Role) bool {
	if service.DeriveAccess(currentUser(c).Role).Can(domain.CanManageAdmins) {
		return true
	}
	for _, r := range roles {
		if r != "" && domain.NormalizeRole(r) != domain.RoleUser {
			return false
		}
	}
	return true
}

func forbidAdmins(c echo.Context) error {
	return fail(c, http.StatusForbidden, "only super admins can manage admins")
}

func (s *Server) listUsers(c echo.Context) error {
	return ok(c, http.StatusOK, s.accounts.list(), "")
}

func (s *Server) createUser(c echo.Context) error {
	var req ports.AdminUserInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if !mayManage(c, req.Role) {
		return forbidAdmins(c)
	}
	password := req.Password
	if password == "" {
		password = randomToken()
	}
	u, err := s.accounts.create(domain.User{
		Email:         req.Email,
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          req.Role,
		EmailVerified: true,
	}, password)
	if errors.Is(err, errEmailTaken) {
		return fail(c, http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	if req.Password == "" {
		s.accounts.oneShot("reset", u.Email)
	}
	return ok(c, http.StatusCreated, u, "user created")
}

// target loads the user addressed by :id. A zero status means the caller
// may act on it; otherwise status and msg describe the rejection.
func (s *Server) target(c echo.Context) (domain.User, int, string) {
	u, found := s.accounts.get(c.Param("id"))
	if !found {
		return u, http.StatusNotFound, "user not found"
	}
	if !mayManage(c, u.Role) {
		return u, http.StatusForbidden, "only super admins can manage admins"
	}
	return u, 0, ""
}

func (s *Server) updateUser(c echo.Context) error {
	var req ports.AdminUserInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	current, status, msg := s.target(c)
	if status != 0 {
		return fail(c, status, msg)
	}
	if !mayManage(c, req.Role) {
		return forbidAdmins(c)
	}
	u, err := s.accounts.update(current.ID, func(u *domain.User) error {
		u.Email, u.Username, u.FirstName, u.LastName = req.Email, req.Username, req.FirstName, req.LastName
		if req.Role != "" {
			u.Role = domain.NormalizeRole(req.Role)
		}
		return nil
	})
	if errors.Is(err, errEmailTaken) {
		return fail(c, http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	if req.Password != "" {
		if err := s.accounts.setPassword(u.ID, req.Password); err != nil {
			return err
		}
	}
	return ok(c, http.StatusOK, u, "user updated")
}

func (s *Server) disableUser(c echo.Context) error {
	current, status, msg := s.target(c)
	if status != 0 {
		return fail(c, status, msg)
	}
	u, err := s.accounts.update(current.ID, func(u *domain.User) error {
		u.Disabled = true
		return nil
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, u, "user disabled")
}

func (s *Server) deleteUser(c echo.Context) error {
	current, status, msg := s.target(c)
	if status != 0 {
		return fail(c, status, msg)
	}
	if current.ID == currentUser(c).ID {
		return fail(c, http.StatusBadRequest, "you cannot delete your own account")
	}
	s.accounts.remove(current.ID)
	s.content.removeUser(current.ID)
	return ok(c, http.StatusOK, nil, "user deleted")
}
