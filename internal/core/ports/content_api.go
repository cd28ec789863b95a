package ports

import (
	"context"
	"time"

	"github.com/innerpath/client-core/internal/core/domain"
)

// JournalInput is the writable part of a journal entry.
type JournalInput struct {
	Title   string   `json:"title"   validate:"required,max=200"`
	Content string   `json:"content" validate:"required"`
	Mood    string   `json:"mood,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// GoalInput is the writable part of a goal.
type GoalInput struct {
	Title       string     `json:"title"                 validate:"required,max=200"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
	Progress    int        `json:"progress"              validate:"gte=0,lte=100"`
	Completed   bool       `json:"completed"`
}

// PostInput is the writable part of a post.
type PostInput struct {
	Title   string `json:"title"   validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// CommentInput is a new comment on a post.
type CommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// ContentAPI wraps the journals, goals, posts, achievements and statistics
// endpoints. Every call carries the session bearer token.
type ContentAPI interface {
	ListJournals(ctx context.Context, token string) ([]domain.Journal, error)
	CreateJournal(ctx context.Context, token string, in JournalInput) (*domain.Journal, error)
	UpdateJournal(ctx context.Context, token, id string, in JournalInput) (*domain.Journal, error)
	DeleteJournal(ctx context.Context, token, id string) error

	ListGoals(ctx context.Context, token string) ([]domain.Goal, error)
	CreateGoal(ctx context.Context, token string, in GoalInput) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, token, id string, in GoalInput) (*domain.Goal, error)
	DeleteGoal(ctx context.Context, token, id string) error

	ListPosts(ctx context.Context, token string) ([]domain.Post, error)
	CreatePost(ctx context.Context, token string, in PostInput) (*domain.Post, error)
	UpdatePost(ctx context.Context, token, id string, in PostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, token, id string) error
	LikePost(ctx context.Context, token, id string) (*domain.Post, error)
	AddComment(ctx context.Context, token, id string, in CommentInput) (*domain.Post, error)

	ListAchievements(ctx context.Context, token string) ([]domain.Achievement, error)
	GetStatistics(ctx context.Context, token string) (*domain.Statistics, error)
}
