package service

import (
	"context"
	"strings"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/repository"
	"github.com/aman-churiwal/eligibility-engine/internal/window"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Cache of active policies per action
type PolicyCache interface {
	GetActive(ctx context.Context, actionType string) ([]models.Policy, bool, error)
	SetActive(ctx context.Context, actionType string, policies []models.Policy) error
	Invalidate(ctx context.Context, actionTypes ...string) error
}

type PolicyInput struct {
	Name       string
	ActionType string
	Limit      int64
	Window     string
	Rules      datatypes.JSON
}

type PolicyService struct {
	repository *repository.PolicyRepository
	cache      PolicyCache
}

// cache may be nil, in which case every lookup goes to the database
func NewPolicyService(repo *repository.PolicyRepository, cache PolicyCache) *PolicyService {
	return &PolicyService{
		repository: repo,
		cache:      cache,
	}
}

func validatePolicyInput(in *PolicyInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.ActionType = strings.TrimSpace(in.ActionType)

	var details []FieldError
	if in.Name == "" {
		details = append(details, FieldError{Field: "name", Message: "is required"})
	}
	if in.ActionType == "" {
		details = append(details, FieldError{Field: "action", Message: "is required"})
	}
	if in.Limit <= 0 {
		details = append(details, FieldError{Field: "limit", Message: "must be greater than 0"})
	}
	if kind, err := window.ParseKind(in.Window); err != nil {
		details = append(details, FieldError{Field: "window", Message: "must be one of hourly daily weekly monthly"})
	} else {
		in.Window = string(kind)
	}

	if len(details) > 0 {
		return Validation("Invalid policy data", details...)
	}
	return nil
}

func rulesOrEmpty(rules datatypes.JSON) datatypes.JSON {
	if len(rules) == 0 || string(rules) == "null" {
		return datatypes.JSON("{}")
	}
	return rules
}

func (s *PolicyService) Create(ctx context.Context, in PolicyInput) (*models.Policy, error) {
	if err := validatePolicyInput(&in); err != nil {
		return nil, err
	}

	policy := &models.Policy{
		Name:        in.Name,
		ActionType:  in.ActionType,
		LimitAmount: in.Limit,
		TimeWindow:  in.Window,
		Rules:       rulesOrEmpty(in.Rules),
		IsActive:    true,
	}
	if err := s.repository.Create(ctx, policy); err != nil {
		return nil, Storage("create policy", err)
	}

	s.invalidate(ctx, policy.ActionType)
	return policy, nil
}

func (s *PolicyService) List(ctx context.Context, includeInactive bool) ([]models.Policy, error) {
	policies, err := s.repository.List(ctx, includeInactive)
	if err != nil {
		return nil, Storage("list policies", err)
	}
	return policies, nil
}

func (s *PolicyService) Get(ctx context.Context, id string) (*models.Policy, error) {
	policy, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, Storage("get policy", err)
	}
	if policy == nil {
		return nil, ErrPolicyNotFound
	}
	return policy, nil
}

// Replaces the mutable fields of a policy
func (s *PolicyService) Update(ctx context.Context, id string, in PolicyInput) (*models.Policy, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validatePolicyInput(&in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         in.Name,
		"action_type":  in.ActionType,
		"limit_amount": in.Limit,
		"time_window":  in.Window,
		"rules":        rulesOrEmpty(in.Rules),
	}
	if _, err := s.repository.Update(ctx, id, updates); err != nil {
		return nil, Storage("update policy", err)
	}

	s.invalidate(ctx, existing.ActionType, in.ActionType)
	return s.Get(ctx, id)
}

func (s *PolicyService) Deactivate(ctx context.Context, id string) (*models.Policy, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.repository.Update(ctx, id, map[string]interface{}{"is_active": false}); err != nil {
		return nil, Storage("deactivate policy", err)
	}

	s.invalidate(ctx, existing.ActionType)
	existing.IsActive = false
	return existing, nil
}

func (s *PolicyService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	found, err := s.repository.Delete(ctx, id)
	if err != nil {
		return Storage("delete policy", err)
	}
	if !found {
		return ErrPolicyNotFound
	}

	s.invalidate(ctx, existing.ActionType)
	return nil
}

// Returns active policies for an action, oldest first. Reads through the cache
// when one is configured; cache failures fall back to the database.
func (s *PolicyService) ActiveForAction(ctx context.Context, actionType string) ([]models.Policy, error) {
	if s.cache != nil {
		policies, ok, err := s.cache.GetActive(ctx, actionType)
		if err != nil {
			log.WithError(err).WithField("action", actionType).Warn("policy cache: read failed")
		} else if ok {
			return policies, nil
		}
	}

	policies, err := s.repository.ListActiveByAction(ctx, actionType)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetActive(ctx, actionType, policies); err != nil {
			log.WithError(err).WithField("action", actionType).Warn("policy cache: write failed")
		}
	}
	return policies, nil
}

func (s *PolicyService) invalidate(ctx context.Context, actionTypes ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, actionTypes...); err != nil {
		log.WithError(err).WithField("actions", actionTypes).Warn("policy cache: invalidate failed")
	}
}
