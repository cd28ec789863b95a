package domain

import "time"

// Workflow names one of the one-shot email workflows.
type Workflow string

const (
	WorkflowVerification  Workflow = "verification"
	WorkflowPasswordReset Workflow = "password_reset"
)

// ResendCooldownSeconds is how long a workflow blocks a resend after a send.
const ResendCooldownSeconds = 60

// WorkflowStatus is the state of a single email workflow. Completed is the
// workflow's terminal flag: verified for email verification, used for a
// password reset.
type WorkflowStatus struct {
	Sent           bool       `json:"sent"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CanResend      bool       `json:"canResend"`
	ResendCooldown int        `json:"resendCooldown"`
}

// InitialWorkflowStatus is the unsent state.
func InitialWorkflowStatus() WorkflowStatus {
	return WorkflowStatus{CanResend: true}
}

// EmailFlowStatus holds both email workflows.
type EmailFlowStatus struct {
	Verification  WorkflowStatus `json:"emailVerification"`
	PasswordReset WorkflowStatus `json:"passwordReset"`
	IsLoading     bool           `json:"isLoading"`
	Error         string         `json:"error,omitempty"`
}

// Workflow returns the status of w.
func (s EmailFlowStatus) Workflow(w Workflow) WorkflowStatus {
	if w == WorkflowPasswordReset {
		return s.PasswordReset
	}
	return s.Verification
}

// WithWorkflow returns a copy of s with w replaced by ws.
func (s EmailFlowStatus) WithWorkflow(w Workflow, ws WorkflowStatus) EmailFlowStatus {
	if w == WorkflowPasswordReset {
		s.PasswordReset = ws
	} else {
		s.Verification = ws
	}
	return s
}
