package ports

import "context"

// TaskRunner runs detached work whose outcome the caller never awaits.
// Tasks sharing a key run one at a time in submission order.
type TaskRunner interface {
	Go(key string, task func(ctx context.Context) error)
}
