package ports

import "github.com/innerpath/client-core/internal/core/domain"

// Result is returned by every container operation in place of an error so
// callers can branch on the outcome without unwrapping.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	// Err is the underlying cause on failure, for errors.Is matching.
	Err error `json:"-"`
}

// OK is a successful Result.
func OK(msg string) Result { return Result{Success: true, Message: msg} }

// Fail converts err into a failed Result carrying its user-facing message.
func Fail(err error) Result {
	return Result{Success: false, Message: domain.Message(err), Err: err}
}
