package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// --- Actions ---

type dataReset struct{}

// guarded carries an action produced under session generation gen. It is
// dropped if the dataset was reset since, so responses that arrive after a
// logout never repopulate the store.
type guarded struct {
	gen    uint64
	action Action
}

type loadStarted struct{}

type loadSettled struct{ err string }

type journalsLoaded struct{ items []domain.Journal }
type journalAdded struct{ item domain.Journal }
type journalReplaced struct{ item domain.Journal }
type journalRemoved struct{ id string }

type goalsLoaded struct{ items []domain.Goal }
type goalAdded struct{ item domain.Goal }
type goalReplaced struct{ item domain.Goal }
type goalRemoved struct{ id string }

type postsLoaded struct{ items []domain.Post }
type postAdded struct{ item domain.Post }
type postReplaced struct{ item domain.Post }
type postRemoved struct{ id string }

type achievementsLoaded struct{ items []domain.Achievement }

type statisticsLoaded struct{ stats *domain.Statistics }

type dataState struct {
	domain.Dataset
	gen uint64
}

// InitialDataset is the empty dataset shown to a signed-out user.
func InitialDataset() domain.Dataset {
	return domain.Dataset{
		Journals:     []domain.Journal{},
		Goals:        []domain.Goal{},
		Posts:        []domain.Post{},
		Achievements: []domain.Achievement{},
	}
}

func dataReducer(s dataState, a Action) dataState {
	switch a := a.(type) {
	case dataReset:
		return dataState{Dataset: InitialDataset(), gen: s.gen + 1}
	case guarded:
		if a.gen != s.gen {
			return s
		}
		s.Dataset = reduceDataset(s.Dataset, a.action)
	}
	return s
}

func journalID(j domain.Journal) string { return j.ID }
func goalID(g domain.Goal) string       { return g.ID }
func postID(p domain.Post) string       { return p.ID }

func reduceDataset(d domain.Dataset, a Action) domain.Dataset {
	switch a := a.(type) {
	case loadStarted:
		d.IsLoading = true
		d.Error = ""
	case loadSettled:
		d.IsLoading = false
		d.Error = a.err

	case journalsLoaded:
		d.Journals = append([]domain.Journal{}, a.items...)
	case journalAdded:
		d.Journals = prependUnique(d.Journals, a.item, journalID)
	case journalReplaced:
		d.Journals = replaceByID(d.Journals, a.item, journalID)
	case journalRemoved:
		d.Journals = removeByID(d.Journals, a.id, journalID)

	case goalsLoaded:
		d.Goals = append([]domain.Goal{}, a.items...)
	case goalAdded:
		d.Goals = prependUnique(d.Goals, a.item, goalID)
	case goalReplaced:
		d.Goals = replaceByID(d.Goals, a.item, goalID)
	case goalRemoved:
		d.Goals = removeByID(d.Goals, a.id, goalID)

	case postsLoaded:
		d.Posts = append([]domain.Post{}, a.items...)
	case postAdded:
		d.Posts = prependUnique(d.Posts, a.item, postID)
	case postReplaced:
		d.Posts = replaceByID(d.Posts, a.item, postID)
	case postRemoved:
		d.Posts = removeByID(d.Posts, a.id, postID)

	case achievementsLoaded:
		d.Achievements = append([]domain.Achievement{}, a.items...)
	case statisticsLoaded:
		d.Statistics = a.stats
	}
	return d
}

// prependUnique returns a new list with item first and any older copy of
// the same id dropped.
func prependUnique[T any](list []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	for _, it := range list {
		if id(it) != id(item) {
			out = append(out, it)
		}
	}
	return out
}

// replaceByID swaps the record with item's id in place. Absent ids leave the
// list unchanged.
func replaceByID[T any](list []T, item T, id func(T) string) []T {
	out := make([]T, len(list))
	copy(out, list)
	for i := range out {
		if id(out[i]) == id(item) {
			out[i] = item
		}
	}
	return out
}

func removeByID[T any](list []T, target string, id func(T) string) []T {
	out := make([]T, 0, len(list))
	for _, it := range list {
		if id(it) != target {
			out = append(out, it)
		}
	}
	return out
}

// DataStore owns the user's journals, goals, posts, achievements and
// statistics. It follows the auth store: a sign-in triggers a full load and
// a sign-out clears everything synchronously.
type DataStore struct {
	store  *Store[dataState]
	auth   *AuthStore
	api    ports.ContentAPI
	tasks  ports.TaskRunner
	log    zerolog.Logger
	flight singleflight.Group

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewDataStore wires a DataStore to auth. Statistics refreshes after
// mutations are handed to tasks and never awaited.
func NewDataStore(auth *AuthStore, api ports.ContentAPI, tasks ports.TaskRunner, log zerolog.Logger) *DataStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &DataStore{
		store:  NewStore(dataState{Dataset: InitialDataset()}, dataReducer),
		auth:   auth,
		api:    api,
		tasks:  tasks,
		log:    log.With().Str("store", "data").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.unsubscribe = auth.Subscribe(s.onSessionChange)
	if auth.State().IsAuthenticated {
		go s.LoadAllData(ctx)
	}
	return s
}

// Close detaches the store from the auth store and cancels automatic loads.
func (s *DataStore) Close() {
	s.unsubscribe()
	s.cancel()
}

// State returns the current dataset snapshot. Its slices are shared and
// must not be modified.
func (s *DataStore) State() domain.Dataset { return s.store.State().Dataset }

func (s *DataStore) onSessionChange(prev, next domain.Session) {
	switch {
	case prev.IsAuthenticated && !next.IsAuthenticated:
		s.store.Dispatch(dataReset{})
		s.log.Debug().Msg("session ended, dataset cleared")
	case !prev.IsAuthenticated && next.IsAuthenticated:
		go s.LoadAllData(s.ctx)
	case prev.IsAuthenticated && next.IsAuthenticated && prev.User.ID != next.User.ID:
		s.store.Dispatch(dataReset{})
		go s.LoadAllData(s.ctx)
	}
}

func (s *DataStore) generation() uint64 { return s.store.State().gen }

func (s *DataStore) apply(gen uint64, a Action) {
	s.store.Dispatch(guarded{gen: gen, action: a})
}

// LoadAllData fetches every collection concurrently. Each result is applied
// as soon as it arrives; a failing fetch sets Error but neither blocks nor
// rolls back its siblings.
//
// A call made after a sign-out never joins a load started by the previous
// session.
func (s *DataStore) LoadAllData(ctx context.Context) ports.Result {
	gen, sess, ok := s.session()
	if !ok {
		return ports.Fail(domain.ErrNotAuthenticated)
	}
	v, _, _ := s.flight.Do(fmt.Sprintf("load:%d", gen), func() (any, error) {
		return s.loadAll(ctx, gen, sess.Token), nil
	})
	return v.(ports.Result)
}

// session reads the generation before the session, so a sign-out landing
// between the two reads leaves a stale generation (results dropped) rather
// than the old token paired with the new generation.
func (s *DataStore) session() (uint64, domain.Session, bool) {
	gen := s.generation()
	sess := s.auth.State()
	return gen, sess, sess.IsAuthenticated
}

func (s *DataStore) loadAll(ctx context.Context, gen uint64, token string) ports.Result {
	s.apply(gen, loadStarted{})

	var g errgroup.Group
	g.Go(func() error {
		items, err := s.api.ListJournals(ctx, token)
		if err != nil {
			return fmt.Errorf("load journals: %w", err)
		}
		s.apply(gen, journalsLoaded{items: items})
		return nil
	})
	g.Go(func() error {
		items, err := s.api.ListGoals(ctx, token)
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		s.apply(gen, goalsLoaded{items: items})
		return nil
	})
	g.Go(func() error {
		items, err := s.api.ListPosts(ctx, token)
		if err != nil {
			return fmt.Errorf("load posts: %w", err)
		}
		s.apply(gen, postsLoaded{items: items})
		return nil
	})
	g.Go(func() error {
		items, err := s.api.ListAchievements(ctx, token)
		if err != nil {
			return fmt.Errorf("load achievements: %w", err)
		}
		s.apply(gen, achievementsLoaded{items: items})
		return nil
	})
	g.Go(func() error {
		stats, err := s.api.GetStatistics(ctx, token)
		if err != nil {
			return fmt.Errorf("load statistics: %w", err)
		}
		s.apply(gen, statisticsLoaded{stats: stats})
		return nil
	})

	err := g.Wait()
	if err != nil {
		s.log.Warn().Err(err).Msg("data load partially failed")
		s.apply(gen, loadSettled{err: domain.Message(err)})
		return ports.Fail(err)
	}
	s.apply(gen, loadSettled{})
	s.log.Debug().Msg("data loaded")
	return ports.OK("")
}

// RefreshStatistics reloads the aggregate and waits for it.
func (s *DataStore) RefreshStatistics(ctx context.Context) ports.Result {
	res, _ := s.run(ctx, "statistics", false, func(ctx context.Context, token string) (Action, error) {
		stats, err := s.api.GetStatistics(ctx, token)
		if err != nil {
			return nil, err
		}
		return statisticsLoaded{stats: stats}, nil
	})
	return res
}

// scheduleStatisticsRefresh reloads statistics in the background. The
// dataset is eventually consistent: callers of the triggering mutation do
// not wait for it and its failure is only logged by the task runner.
func (s *DataStore) scheduleStatisticsRefresh(gen uint64, token string) {
	s.tasks.Go("statistics", func(ctx context.Context) error {
		stats, err := s.api.GetStatistics(ctx, token)
		if err != nil {
			return fmt.Errorf("refresh statistics: %w", err)
		}
		s.apply(gen, statisticsLoaded{stats: stats})
		return nil
	})
}

type runResult struct {
	res    ports.Result
	action Action
}

// run performs one authenticated request and applies the action it yields.
// Identical concurrent calls (same key, same session) share a single
// request.
func (s *DataStore) run(ctx context.Context, key string, refreshStats bool, call func(ctx context.Context, token string) (Action, error)) (ports.Result, Action) {
	gen, sess, ok := s.session()
	if !ok {
		return ports.Fail(domain.ErrNotAuthenticated), nil
	}

	v, _, _ := s.flight.Do(fmt.Sprintf("%s@%d", key, gen), func() (any, error) {
		action, err := call(ctx, sess.Token)
		if err != nil {
			s.log.Info().Err(err).Str("op", key).Msg("request failed")
			return runResult{res: ports.Fail(err)}, nil
		}
		s.apply(gen, action)
		if refreshStats {
			s.scheduleStatisticsRefresh(gen, sess.Token)
		}
		return runResult{res: ports.OK(""), action: action}, nil
	})
	rr := v.(runResult)
	return rr.res, rr.action
}

// --- Journals ---

// CreateJournal creates an entry and prepends the server's record.
func (s *DataStore) CreateJournal(ctx context.Context, in ports.JournalInput) (*domain.Journal, ports.Result) {
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	res, act := s.run(ctx, flightKey("journal.create", in), true, func(ctx context.Context, token string) (Action, error) {
		j, err := s.api.CreateJournal(ctx, token, in)
		if err != nil {
			return nil, err
		}
		return journalAdded{item: *j}, nil
	})
	if a, ok := act.(journalAdded); ok {
		return &a.item, res
	}
	return nil, res
}

// UpdateJournal replaces the entry in place; list order is unchanged.
func (s *DataStore) UpdateJournal(ctx context.Context, id string, in ports.JournalInput) (*domain.Journal, ports.Result) {
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	res, act := s.run(ctx, flightKey("journal.update", id, in), true, func(ctx context.Context, token string) (Action, error) {
		j, err := s.api.UpdateJournal(ctx, token, id, in)
		if err != nil {
			return nil, err
		}
		return journalReplaced{item: *j}, nil
	})
	if a, ok := act.(journalReplaced); ok {
		return &a.item, res
	}
	return nil, res
}

// DeleteJournal removes the entry. An id the backend no longer knows is
// removed locally too.
func (s *DataStore) DeleteJournal(ctx context.Context, id string) ports.Result {
	res, _ := s.run(ctx, "journal.delete:"+id, true, func(ctx context.Context, token string) (Action, error) {
		if err := s.api.DeleteJournal(ctx, token, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return journalRemoved{id: id}, nil
	})
	return res
}

// --- Goals ---

// CreateGoal creates a goal and prepends the server's record.
func (s *DataStore) CreateGoal(ctx context.Context, in ports.GoalInput) (*domain.Goal, ports.Result) {
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	res, act := s.run(ctx, flightKey("goal.create", in), true, func(ctx context.Context, token string) (Action, error) {
		g, err := s.api.CreateGoal(ctx, token, in)
		if err != nil {
			return nil, err
		}
		return goalAdded{item: *g}, nil
	})
	if a, ok := act.(goalAdded); ok {
		return &a.item, res
	}
	return nil, res
}

// UpdateGoal replaces the goal in place.
func (s *DataStore) UpdateGoal(ctx context.Context, id string, in ports.GoalInput) (*domain.Goal, ports.Result) {
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	res, act := s.run(ctx, flightKey("goal.update", id, in), true, func(ctx context.Context, token string) (Action, error) {
		g, err := s.api.UpdateGoal(ctx, token, id, in)
		if err != nil {
			return nil, err
		}
		return goalReplaced{item: *g}, nil
	})
	if a, ok := act.(goalReplaced); ok {
		return &a.item, res
	}
	return nil, res
}

// DeleteGoal removes the goal.
func (s *DataStore) DeleteGoal(ctx context.Context, id string) ports.Result {
	res, _ := s.run(ctx, "goal.delete:"+id, true, func(ctx context.Context, token string) (Action, error) {
		if err := s.api.DeleteGoal(ctx, token, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return goalRemoved{id: id}, nil
	})
	return res
}

// --- Posts ---

// CreatePost publishes a post and prepends the server's record.
func (s *DataStore) CreatePost(ctx context.Context, in ports.PostInput) (*domain.Post, ports.Result) {
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	res, act := s.run(ctx, flightKey("post.create", in), false, func(ctx context.Context, token string) (Action, error) {
		p, err := s.api.CreatePost(ctx, token, in)
		if err != nil {
			return nil, err
		}
		return postAdded{item: *p}, nil
	})
	if a, ok := act.(postAdded); ok {
		return &a.item, res
	}
	return nil, res
}

// UpdatePost replaces the post in place.
func (s *DataStore) UpdatePost(ctx context.Context, id string, in ports.PostInput) (*domain.Post, ports.Result) {
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	res, act := s.run(ctx, flightKey("post.update", id, in), false, func(ctx context.Context, token string) (Action, error) {
		p, err := s.api.UpdatePost(ctx, token, id, in)
		if err != nil {
			return nil, err
		}
		return postReplaced{item: *p}, nil
	})
	if a, ok := act.(postReplaced); ok {
		return &a.item, res
	}
	return nil, res
}

// DeletePost removes the post.
func (s *DataStore) DeletePost(ctx context.Context, id string) ports.Result {
	res, _ := s.run(ctx, "post.delete:"+id, false, func(ctx context.Context, token string) (Action, error) {
		if err := s.api.DeletePost(ctx, token, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return postRemoved{id: id}, nil
	})
	return res
}

// LikePost toggles a like and stores the server's post, including its
// authoritative like count, instead of counting locally.
func (s *DataStore) LikePost(ctx context.Context, id string) ports.Result {
	res, _ := s.run(ctx, "post.like:"+id, false, func(ctx context.Context, token string) (Action, error) {
		p, err := s.api.LikePost(ctx, token, id)
		if err != nil {
			return nil, err
		}
		return postReplaced{item: *p}, nil
	})
	return res
}

// AddComment comments on a post and stores the server's updated post.
func (s *DataStore) AddComment(ctx context.Context, id string, in ports.CommentInput) ports.Result {
	if err := validateInput(in); err != nil {
		return ports.Fail(err)
	}
	res, _ := s.run(ctx, flightKey("post.comment", id, in), false, func(ctx context.Context, token string) (Action, error) {
		p, err := s.api.AddComment(ctx, token, id, in)
		if err != nil {
			return nil, err
		}
		return postReplaced{item: *p}, nil
	})
	return res
}
