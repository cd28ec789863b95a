package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// --- Actions ---

type emailRequestStarted struct{}

type emailSent struct {
	workflow domain.Workflow
	at       time.Time
}

type emailCompleted struct {
	workflow domain.Workflow
	at       time.Time
}

type emailFailed struct{ message string }

type cooldownTicked struct{ workflow domain.Workflow }

type workflowRestored struct {
	workflow domain.Workflow
	status   domain.WorkflowStatus
}

type emailStatusReset struct{}

// InitialEmailFlowStatus has both workflows unsent and resendable.
func InitialEmailFlowStatus() domain.EmailFlowStatus {
	return domain.EmailFlowStatus{
		Verification:  domain.InitialWorkflowStatus(),
		PasswordReset: domain.InitialWorkflowStatus(),
	}
}

func emailReducer(s domain.EmailFlowStatus, a Action) domain.EmailFlowStatus {
	switch a := a.(type) {
	case emailRequestStarted:
		s.IsLoading = true
		s.Error = ""
	case emailSent:
		ws := s.Workflow(a.workflow)
		at := a.at
		ws.Sent = true
		ws.SentAt = &at
		ws.ResendCooldown = domain.ResendCooldownSeconds
		s = s.WithWorkflow(a.workflow, ws)
		s.IsLoading = false
	case emailCompleted:
		ws := s.Workflow(a.workflow)
		at := a.at
		ws.Sent = true
		ws.SentAt = &at
		ws.Completed = true
		ws.CompletedAt = &at
		ws.ResendCooldown = domain.ResendCooldownSeconds
		s = s.WithWorkflow(a.workflow, ws)
		s.IsLoading = false
	case emailFailed:
		s.IsLoading = false
		s.Error = a.message
	case cooldownTicked:
		ws := s.Workflow(a.workflow)
		if ws.ResendCooldown > 0 {
			ws.ResendCooldown--
		}
		s = s.WithWorkflow(a.workflow, ws)
	case workflowRestored:
		ws := s.Workflow(a.workflow)
		// Completion is monotonic; a stale persisted copy cannot undo it.
		if ws.Completed && !a.status.Completed {
			a.status.Completed, a.status.CompletedAt = true, ws.CompletedAt
		}
		s = s.WithWorkflow(a.workflow, a.status)
	case emailStatusReset:
		return InitialEmailFlowStatus()
	default:
		return s
	}

	s.Verification.CanResend = s.Verification.ResendCooldown == 0
	s.PasswordReset.CanResend = s.PasswordReset.ResendCooldown == 0
	return s
}

// TickerFunc creates a ticker firing every d and a function that stops it.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is the production TickerFunc backed by time.Ticker.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type cooldownTimer struct {
	cancel context.CancelFunc
}

// EmailStore manages the email-verification and password-reset workflows.
// Each workflow runs its own one-second cooldown ticker while its cooldown
// is above zero; the tickers never touch each other's count.
type EmailStore struct {
	store     *Store[domain.EmailFlowStatus]
	api       ports.EmailAPI
	kv        ports.KVStore
	log       zerolog.Logger
	flight    singleflight.Group
	newTicker TickerFunc
	now       func() time.Time

	mu     sync.Mutex
	timers map[domain.Workflow]*cooldownTimer
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewEmailStore returns an EmailStore. A nil newTicker uses RealTicker.
func NewEmailStore(api ports.EmailAPI, kv ports.KVStore, newTicker TickerFunc, log zerolog.Logger) *EmailStore {
	if newTicker == nil {
		newTicker = RealTicker
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EmailStore{
		store:     NewStore(InitialEmailFlowStatus(), emailReducer),
		api:       api,
		kv:        kv,
		log:       log.With().Str("store", "email").Logger(),
		newTicker: newTicker,
		now:       time.Now,
		timers:    make(map[domain.Workflow]*cooldownTimer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns the current status snapshot.
func (s *EmailStore) State() domain.EmailFlowStatus { return s.store.State() }

// Close stops every running cooldown ticker and waits for them to exit.
func (s *EmailStore) Close() {
	s.cancel()
	s.wg.Wait()
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyInput struct {
	Token string `json:"token" validate:"required"`
}

type resetInput struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// SendVerificationEmail asks the backend to (re)send the verification email.
func (s *EmailStore) SendVerificationEmail(ctx context.Context, email string) ports.Result {
	return s.send(ctx, domain.WorkflowVerification, email, s.api.SendVerificationEmail)
}

// SendPasswordResetEmail asks the backend to send a password-reset email.
func (s *EmailStore) SendPasswordResetEmail(ctx context.Context, email string) ports.Result {
	return s.send(ctx, domain.WorkflowPasswordReset, email, s.api.SendPasswordResetEmail)
}

func (s *EmailStore) send(ctx context.Context, w domain.Workflow, email string, call func(context.Context, string) error) ports.Result {
	in := emailInput{Email: NormalizeEmail(email)}
	if err := validateInput(in); err != nil {
		return ports.Fail(err)
	}
	if ws := s.store.State().Workflow(w); !ws.CanResend {
		return ports.Fail(fmt.Errorf("%w (%ds)", domain.ErrCooldownActive, ws.ResendCooldown))
	}

	v, _, _ := s.flight.Do(flightKey("send", w, in.Email), func() (any, error) {
		s.store.Dispatch(emailRequestStarted{})
		if err := call(ctx, in.Email); err != nil {
			s.store.Dispatch(emailFailed{message: domain.Message(err)})
			s.log.Info().Err(err).Str("workflow", string(w)).Msg("email send failed")
			return ports.Fail(err), nil
		}
		s.store.Dispatch(emailSent{workflow: w, at: s.now()})
		s.persist(ctx, w)
		s.startCooldown(w)
		return ports.OK("email sent"), nil
	})
	return v.(ports.Result)
}

// VerifyEmail confirms the address with the token from the email.
func (s *EmailStore) VerifyEmail(ctx context.Context, token string) ports.Result {
	if err := validateInput(verifyInput{Token: token}); err != nil {
		return ports.Fail(err)
	}
	return s.complete(ctx, domain.WorkflowVerification, "verify:"+token, func(ctx context.Context) error {
		return s.api.VerifyEmail(ctx, token)
	})
}

// ResetPassword sets a new password with the token from the reset email.
func (s *EmailStore) ResetPassword(ctx context.Context, token, newPassword string) ports.Result {
	if err := validateInput(resetInput{Token: token, NewPassword: newPassword}); err != nil {
		return ports.Fail(err)
	}
	return s.complete(ctx, domain.WorkflowPasswordReset, "reset:"+token, func(ctx context.Context) error {
		return s.api.ResetPassword(ctx, token, newPassword)
	})
}

func (s *EmailStore) complete(ctx context.Context, w domain.Workflow, key string, call func(context.Context) error) ports.Result {
	v, _, _ := s.flight.Do(key, func() (any, error) {
		s.store.Dispatch(emailRequestStarted{})
		if err := call(ctx); err != nil {
			s.store.Dispatch(emailFailed{message: domain.Message(err)})
			s.log.Info().Err(err).Str("workflow", string(w)).Msg("email workflow completion failed")
			return ports.Fail(err), nil
		}
		s.store.Dispatch(emailCompleted{workflow: w, at: s.now()})
		s.persist(ctx, w)
		s.startCooldown(w)
		return ports.OK("done"), nil
	})
	return v.(ports.Result)
}

// ResetStatus returns both workflows to their unsent state, stops their
// tickers and forgets the persisted status. Storage failures are logged.
func (s *EmailStore) ResetStatus(ctx context.Context) {
	s.mu.Lock()
	for w, t := range s.timers {
		t.cancel()
		delete(s.timers, w)
	}
	s.mu.Unlock()
	s.store.Dispatch(emailStatusReset{})

	if err := s.kv.MultiRemove(ctx, ports.KeyEmailVerificationStatus, ports.KeyPasswordResetStatus); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear persisted email status")
	}
}

// Restore reloads persisted workflow status and resumes any cooldown that
// has not yet elapsed.
func (s *EmailStore) Restore(ctx context.Context) {
	for _, w := range []domain.Workflow{domain.WorkflowVerification, domain.WorkflowPasswordReset} {
		raw, ok, err := s.kv.Get(ctx, statusKey(w))
		if err != nil {
			s.log.Warn().Err(err).Str("workflow", string(w)).Msg("failed to read email status")
			continue
		}
		if !ok {
			continue
		}
		var ws domain.WorkflowStatus
		if err := json.Unmarshal([]byte(raw), &ws); err != nil {
			s.log.Warn().Err(err).Str("workflow", string(w)).Msg("persisted email status is corrupt")
			continue
		}
		ws.ResendCooldown = 0
		if ws.SentAt != nil {
			elapsed := int(s.now().Sub(*ws.SentAt) / time.Second)
			if remaining := domain.ResendCooldownSeconds - elapsed; remaining > 0 {
				ws.ResendCooldown = remaining
			}
		}
		s.store.Dispatch(workflowRestored{workflow: w, status: ws})
		if ws.ResendCooldown > 0 {
			s.startCooldown(w)
		}
	}
}

// startCooldown (re)starts the ticker of w. A running ticker for w is
// replaced so a fresh cooldown always gets a full countdown.
func (s *EmailStore) startCooldown(w domain.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.timers[w]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	t := &cooldownTimer{cancel: cancel}
	s.timers[w] = t

	s.wg.Add(1)
	go s.runCooldown(ctx, w, t)
}

func (s *EmailStore) runCooldown(ctx context.Context, w domain.Workflow, t *cooldownTimer) {
	defer s.wg.Done()
	defer s.release(w, t)

	ticks, stop := s.newTicker(time.Second)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if ctx.Err() != nil {
				return
			}
			st := s.store.Dispatch(cooldownTicked{workflow: w})
			if st.Workflow(w).ResendCooldown == 0 {
				return
			}
		}
	}
}

// release forgets t unless it has already been replaced.
func (s *EmailStore) release(w domain.Workflow, t *cooldownTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[w] == t {
		delete(s.timers, w)
	}
	t.cancel()
}

func (s *EmailStore) persist(ctx context.Context, w domain.Workflow) {
	raw, err := json.Marshal(s.store.State().Workflow(w))
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode email status")
		return
	}
	if err := s.kv.Set(ctx, statusKey(w), string(raw)); err != nil {
		s.log.Warn().Err(err).Str("workflow", string(w)).Msg("failed to persist email status")
	}
}

func statusKey(w domain.Workflow) string {
	if w == domain.WorkflowPasswordReset {
		return ports.KeyPasswordResetStatus
	}
	return ports.KeyEmailVerificationStatus
}
