package devserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

var errNotFound = errors.New("not found")

// content holds journals and goals per user and the shared post feed.
// Lists are kept newest first.
type content struct {
	mu       sync.RWMutex
	journals map[string][]domain.Journal
	goals    map[string][]domain.Goal
	posts    []domain.Post
	now      func() time.Time
}

func newContent(now func() time.Time) *content {
	return &content{
		journals: make(map[string][]domain.Journal),
		goals:    make(map[string][]domain.Goal),
		now:      now,
	}
}

func indexOf[T any](list []T, id string, key func(T) string) int {
	for i, item := range list {
		if key(item) == id {
			return i
		}
	}
	return -1
}

func journalKey(j domain.Journal) string { return j.ID }
func goalKey(g domain.Goal) string       { return g.ID }
func postKey(p domain.Post) string       { return p.ID }

// ── Journals ──────────────────────────────────────────────────────────────────

func (c *content) listJournals(user string) []domain.Journal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Journal{}, c.journals[user]...)
}

func (c *content) createJournal(user string, in ports.JournalInput) domain.Journal {
	now := c.now()
	j := domain.Journal{ID: uuid.NewString(), Title: in.Title, Content: in.Content, Mood: in.Mood, Tags: in.Tags, CreatedAt: now, UpdatedAt: now}
	c.mu.Lock()
	c.journals[user] = append([]domain.Journal{j}, c.journals[user]...)
	c.mu.Unlock()
	return j
}

func (c *content) updateJournal(user, id string, in ports.JournalInput) (domain.Journal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.journals[user]
	i := indexOf(list, id, journalKey)
	if i < 0 {
		return domain.Journal{}, errNotFound
	}
	list[i].Title, list[i].Content, list[i].Mood, list[i].Tags = in.Title, in.Content, in.Mood, in.Tags
	list[i].UpdatedAt = c.now()
	return list[i], nil
}

func (c *content) deleteJournal(user, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.journals[user]
	i := indexOf(list, id, journalKey)
	if i < 0 {
		return errNotFound
	}
	c.journals[user] = append(list[:i:i], list[i+1:]...)
	return nil
}

// ── Goals ─────────────────────────────────────────────────────────────────────

func (c *content) listGoals(user string) []domain.Goal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Goal{}, c.goals[user]...)
}

func applyGoal(g *domain.Goal, in ports.GoalInput) {
	g.Title, g.Description, g.Category, g.TargetDate = in.Title, in.Description, in.Category, in.TargetDate
	g.Progress, g.Completed = in.Progress, in.Completed
	if g.Progress >= 100 {
		g.Completed = true
	}
}

func (c *content) createGoal(user string, in ports.GoalInput) domain.Goal {
	now := c.now()
	g := domain.Goal{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	applyGoal(&g, in)
	c.mu.Lock()
	c.goals[user] = append([]domain.Goal{g}, c.goals[user]...)
	c.mu.Unlock()
	return g
}

func (c *content) updateGoal(user, id string, in ports.GoalInput) (domain.Goal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.goals[user]
	i := indexOf(list, id, goalKey)
	if i < 0 {
		return domain.Goal{}, errNotFound
	}
	applyGoal(&list[i], in)
	list[i].UpdatedAt = c.now()
	return list[i], nil
}

func (c *content) deleteGoal(user, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.goals[user]
	i := indexOf(list, id, goalKey)
	if i < 0 {
		return errNotFound
	}
	c.goals[user] = append(list[:i:i], list[i+1:]...)
	return nil
}

// ── Posts ─────────────────────────────────────────────────────────────────────

func (c *content) listPosts() []domain.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Post{}, c.posts...)
}

func (c *content) createPost(author string, in ports.PostInput) domain.Post {
	p := domain.Post{ID: uuid.NewString(), Title: in.Title, Content: in.Content, Author: author, CreatedAt: c.now()}
	c.mu.Lock()
	c.posts = append([]domain.Post{p}, c.posts...)
	c.mu.Unlock()
	return p
}

// mutatePost applies fn to a copy of the post and stores it unless fn fails.
func (c *content) mutatePost(id string, fn func(p *domain.Post) error) (domain.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.posts, id, postKey)
	if i < 0 {
		return domain.Post{}, errNotFound
	}
	next := c.posts[i]
	next.LikedBy = append([]string{}, next.LikedBy...)
	next.Comments = append([]domain.Comment{}, next.Comments...)
	if err := fn(&next); err != nil {
		return domain.Post{}, err
	}
	c.posts[i] = next
	return next, nil
}

func (c *content) deletePost(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.posts, id, postKey)
	if i < 0 {
		return errNotFound
	}
	c.posts = append(c.posts[:i:i], c.posts[i+1:]...)
	return nil
}

// toggleLike likes the post for user, or removes an existing like.
func toggleLike(p *domain.Post, user string) {
	if i := indexOf(p.LikedBy, user, func(s string) string { return s }); i >= 0 {
		p.LikedBy = append(p.LikedBy[:i], p.LikedBy[i+1:]...)
	} else {
		p.LikedBy = append(p.LikedBy, user)
	}
	p.Likes = len(p.LikedBy)
}

func (c *content) removeUser(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.journals, user)
	delete(c.goals, user)
}

// ── Progress ──────────────────────────────────────────────────────────────────

// statistics aggregates the user's journals and goals. Streaks count
// consecutive days with at least one journal entry, ending today or
// yesterday for the current streak.
func (c *content) statistics(user string) domain.Statistics {
	c.mu.RLock()
	journals := append([]domain.Journal{}, c.journals[user]...)
	goals := append([]domain.Goal{}, c.goals[user]...)
	c.mu.RUnlock()

	now := c.now()
	st := domain.Statistics{
		TotalJournals:    len(journals),
		TotalGoals:       len(goals),
		MoodDistribution: map[string]int{},
		WeeklyActivity:   make([]domain.DayActivity, 7),
	}
	for _, g := range goals {
		if g.Completed {
			st.CompletedGoals++
		}
	}

	days := map[string]bool{}
	today := now.Truncate(24 * time.Hour)
	for i := range st.WeeklyActivity {
		st.WeeklyActivity[i].Day = today.AddDate(0, 0, i-6).Format("Mon")
	}
	for _, j := range journals {
		if j.Mood != "" {
			st.MoodDistribution[j.Mood]++
		}
		day := j.CreatedAt.Truncate(24 * time.Hour)
		days[day.Format(time.DateOnly)] = true
		if age := int(today.Sub(day).Hours() / 24); age >= 0 && age < 7 {
			st.WeeklyActivity[6-age].Count++
		}
	}

	sorted := make([]string, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	run := 0
	var prev time.Time
	for _, d := range sorted {
		t, _ := time.Parse(time.DateOnly, d)
		if run > 0 && t.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		prev = t
		if run > st.LongestStreak {
			st.LongestStreak = run
		}
	}
	if len(sorted) > 0 {
		last, _ := time.Parse(time.DateOnly, sorted[len(sorted)-1])
		if today.Sub(last) <= 24*time.Hour {
			st.CurrentStreak = run
		}
	}
	return st
}

type milestone struct {
	id, name, description, icon string
	reached                     func(st domain.Statistics) bool
}

var milestones = []milestone{
	{"first-entry", "First Entry", "Write your first journal entry", "book", func(st domain.Statistics) bool { return st.TotalJournals >= 1 }},
	{"ten-entries", "Reflective Mind", "Write ten journal entries", "books", func(st domain.Statistics) bool { return st.TotalJournals >= 10 }},
	{"first-goal", "Goal Setter", "Create your first goal", "flag", func(st domain.Statistics) bool { return st.TotalGoals >= 1 }},
	{"goal-done", "Achiever", "Complete a goal", "trophy", func(st domain.Statistics) bool { return st.CompletedGoals >= 1 }},
	{"week-streak", "Consistent", "Journal seven days in a row", "flame", func(st domain.Statistics) bool { return st.LongestStreak >= 7 }},
}

// achievements lists every milestone; reached ones carry UnlockedAt.
func (c *content) achievements(user string) []domain.Achievement {
	st := c.statistics(user)
	now := c.now()
	out := make([]domain.Achievement, 0, len(milestones))
	for _, m := range milestones {
		a := domain.Achievement{ID: m.id, Name: m.name, Description: m.description, Icon: m.icon}
		if m.reached(st) {
			t := now
			a.UnlockedAt = &t
		}
		out = append(out, a)
	}
	return out
}
