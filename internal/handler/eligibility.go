package handler

import (
	"net/http"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/metrics"
	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/gin-gonic/gin"
)

const invalidRequest = "Invalid request data"

// Body shared by check and record
type actionRequest struct {
	UserID    string  `json:"userId" binding:"required"`
	Action    string  `json:"action" binding:"required"`
	Amount    *int64  `json:"amount"`
	Timestamp *string `json:"timestamp"`
}

// Returns amount (default 1) and the parsed timestamp, if any
func (r actionRequest) normalize() (int64, *time.Time, error) {
	amount := int64(1)
	if r.Amount != nil {
		amount = *r.Amount
	}

	var details []service.FieldError
	if amount < 0 {
		details = append(details, service.FieldError{Field: "amount", Message: "must be greater than or equal to 0"})
	}

	var at *time.Time
	if r.Timestamp != nil && *r.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, *r.Timestamp)
		if err != nil {
			details = append(details, service.FieldError{Field: "timestamp", Message: "must be an RFC3339 timestamp"})
		} else {
			at = &t
		}
	}

	if len(details) > 0 {
		return 0, nil, service.Validation(invalidRequest, details...)
	}
	return amount, at, nil
}

type EligibilityHandler struct {
	checker  *service.EligibilityService
	recorder *service.ActionService
	history  *service.HistoryService
	metrics  *metrics.Metrics
	respond  Responder
}

func NewEligibilityHandler(
	checker *service.EligibilityService,
	recorder *service.ActionService,
	history *service.HistoryService,
	m *metrics.Metrics,
	respond Responder,
) *EligibilityHandler {
	return &EligibilityHandler{
		checker:  checker,
		recorder: recorder,
		history:  history,
		metrics:  m,
		respond:  respond,
	}
}

// Handles POST /eligibility/check
func (h *EligibilityHandler) Check(c *gin.Context) {
	var req actionRequest
	if err := bind(c, &req, invalidRequest); err != nil {
		h.respond.Error(c, err)
		return
	}
	amount, at, err := req.normalize()
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	decision, err := h.checker.Check(c.Request.Context(), service.CheckRequest{
		UserID:     req.UserID,
		ActionType: req.Action,
		Amount:     amount,
		At:         at,
	})
	if err != nil {
		if service.IsUnavailableError(err) {
			h.metrics.ObserveDecision(req.Action, metrics.OutcomeUnavailable)
		}
		h.respond.Error(c, err)
		return
	}

	if decision.Allowed {
		h.metrics.ObserveDecision(req.Action, metrics.OutcomeAllowed)
		c.JSON(http.StatusOK, gin.H{
			"allowed": true,
			"message": decision.Message,
		})
		return
	}

	h.metrics.ObserveDecision(req.Action, metrics.OutcomeDenied)
	v := decision.Violation
	c.JSON(http.StatusOK, gin.H{
		"allowed":     false,
		"reason":      v.Reason(),
		"policyId":    v.PolicyID,
		"policyName":  v.PolicyName,
		"used":        v.Used,
		"limit":       v.Limit,
		"requested":   v.Requested,
		"window":      v.Window.Kind,
		"windowStart": v.Window.Start.UTC().Format(time.RFC3339),
		"windowEnd":   v.Window.End.UTC().Format(time.RFC3339),
	})
}

// Handles POST /eligibility/record
func (h *EligibilityHandler) Record(c *gin.Context) {
	var req actionRequest
	if err := bind(c, &req, invalidRequest); err != nil {
		h.respond.Error(c, err)
		return
	}
	amount, at, err := req.normalize()
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	record, err := h.recorder.Record(c.Request.Context(), service.RecordRequest{
		UserID:     req.UserID,
		ActionType: req.Action,
		Amount:     amount,
		At:         at,
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	h.metrics.ObserveRecorded(record.ActionType)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"recorded":  true,
		"actionId":  record.ID,
		"timestamp": record.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// Handles GET /eligibility/history/:userId?days=N
func (h *EligibilityHandler) History(c *gin.Context) {
	userID := c.Param("userId")
	days := service.ParseDays(c.Query("days"))

	history, err := h.history.History(c.Request.Context(), userID, days)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	actions := history.Actions
	if actions == nil {
		actions = []models.ActionRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":     history.UserID,
		"days":       days,
		"since":      history.Since.UTC().Format(time.RFC3339),
		"actions":    actions,
		"totalCount": history.TotalCount,
	})
}
