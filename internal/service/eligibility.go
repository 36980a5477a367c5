package service

import (
	"context"
	"errors"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/circuitbreaker"
	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/window"
	log "github.com/sirupsen/logrus"
)

const (
	MessageNoPolicy     = "No active policies for action"
	MessageWithinLimits = "Action allowed"
)

// Supplies the active policies for an action, in evaluation order
type PolicySource interface {
	ActiveForAction(ctx context.Context, actionType string) ([]models.Policy, error)
}

// Aggregates recorded usage over [from, to)
type UsageLedger interface {
	SumAmount(ctx context.Context, userID, actionType string, from, to time.Time) (int64, error)
}

type CheckRequest struct {
	UserID     string
	ActionType string
	Amount     int64
	At         *time.Time // evaluation time, defaults to the service clock
}

// Details of the policy that denied a check
type Violation struct {
	PolicyID   string
	PolicyName string
	Window     window.Window
	Used       int64
	Limit      int64
	Requested  int64
}

// Reason returns e.g. "Daily limit exceeded"
func (v *Violation) Reason() string {
	return v.Window.Kind.Title() + " limit exceeded"
}

type Decision struct {
	Allowed   bool
	Message   string
	Violation *Violation
}

type EligibilityOptions struct {
	Clock        Clock
	Location     *time.Location // calendar used for window boundaries
	QueryTimeout time.Duration
	Breaker      *circuitbreaker.Breaker
}

type EligibilityService struct {
	policies     PolicySource
	ledger       UsageLedger
	breaker      *circuitbreaker.Breaker
	clock        Clock
	location     *time.Location
	queryTimeout time.Duration
}

func NewEligibilityService(policies PolicySource, ledger UsageLedger, opts EligibilityOptions) *EligibilityService {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Breaker == nil {
		opts.Breaker = circuitbreaker.New(circuitbreaker.Config{Name: "eligibility-storage"})
	}

	return &EligibilityService{
		policies:     policies,
		ledger:       ledger,
		breaker:      opts.Breaker,
		clock:        opts.Clock,
		location:     opts.Location,
		queryTimeout: opts.QueryTimeout,
	}
}

// Check decides whether the user may perform amount units of the action.
//
// Evaluation is read-only and is not isolated from concurrent recorders: two
// checks racing for the same user and action can both pass and both be
// recorded, jointly exceeding a limit. Callers that need a hard ceiling must
// serialize check and record themselves.
func (s *EligibilityService) Check(ctx context.Context, req CheckRequest) (*Decision, error) {
	if req.Amount < 0 {
		return nil, Validation("Invalid request data", FieldError{Field: "amount", Message: "must be greater than or equal to 0"})
	}

	now := s.clock()
	if req.At != nil {
		now = *req.At
	}
	now = now.In(s.location)

	var policies []models.Policy
	err := s.guard(ctx, func(ctx context.Context) error {
		var err error
		policies, err = s.policies.ActiveForAction(ctx, req.ActionType)
		return err
	})
	if err != nil {
		return nil, Unavailable("load active policies", err)
	}

	if len(policies) == 0 {
		return &Decision{Allowed: true, Message: MessageNoPolicy}, nil
	}

	for _, policy := range policies {
		w, err := windowAt(policy.TimeWindow, now)
		if errors.Is(err, window.ErrUnsupportedWindow) {
			log.WithFields(log.Fields{
				"policy_id": policy.ID,
				"window":    policy.TimeWindow,
			}).Debug("eligibility: skipping policy with unsupported window")
			continue
		}

		var used int64
		err = s.guard(ctx, func(ctx context.Context) error {
			var err error
			used, err = s.ledger.SumAmount(ctx, req.UserID, req.ActionType, w.Start, w.End)
			return err
		})
		if err != nil {
			return nil, Unavailable("sum usage", err)
		}

		if used+req.Amount > policy.LimitAmount {
			return &Decision{
				Allowed: false,
				Violation: &Violation{
					PolicyID:   policy.ID,
					PolicyName: policy.Name,
					Window:     w,
					Used:       used,
					Limit:      policy.LimitAmount,
					Requested:  req.Amount,
				},
			}, nil
		}
	}

	return &Decision{Allowed: true, Message: MessageWithinLimits}, nil
}

// Stored window names are parsed leniently; rows written outside the policy
// service may carry stray case or whitespace.
func windowAt(stored string, now time.Time) (window.Window, error) {
	kind, err := window.ParseKind(stored)
	if err != nil {
		return window.Window{}, err
	}
	return window.Compute(kind, now)
}

// Runs a storage call through the breaker with the configured timeout
func (s *EligibilityService) guard(ctx context.Context, fn func(context.Context) error) error {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	return s.breaker.Execute(ctx, fn)
}
