package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

const invalidPolicy = "Invalid policy data"

type policyRequest struct {
	Name   string                 `json:"name"`
	Action string                 `json:"action"`
	Limit  int64                  `json:"limit"`
	Window string                 `json:"window"`
	Rules  map[string]interface{} `json:"rules"`
}

func (r policyRequest) input() (service.PolicyInput, error) {
	in := service.PolicyInput{
		Name:       r.Name,
		ActionType: r.Action,
		Limit:      r.Limit,
		Window:     r.Window,
	}
	if r.Rules != nil {
		raw, err := json.Marshal(r.Rules)
		if err != nil {
			return in, service.Validation(invalidPolicy, service.FieldError{Field: "rules", Message: "must be a JSON object"})
		}
		in.Rules = datatypes.JSON(raw)
	}
	return in, nil
}

type PolicyHandler struct {
	service *service.PolicyService
	respond Responder
}

func NewPolicyHandler(service *service.PolicyService, respond Responder) *PolicyHandler {
	return &PolicyHandler{service: service, respond: respond}
}

// policy fields plus a message
type policyMessage struct {
	*models.Policy
	Message string `json:"message"`
}

func (h *PolicyHandler) decode(c *gin.Context) (service.PolicyInput, bool) {
	var req policyRequest
	if err := bind(c, &req, invalidPolicy); err != nil {
		h.respond.Error(c, err)
		return service.PolicyInput{}, false
	}
	in, err := req.input()
	if err != nil {
		h.respond.Error(c, err)
		return service.PolicyInput{}, false
	}
	return in, true
}

// Handles POST /policies
func (h *PolicyHandler) Create(c *gin.Context) {
	in, ok := h.decode(c)
	if !ok {
		return
	}

	policy, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, policy)
}

// Handles GET /policies?includeInactive=true
func (h *PolicyHandler) List(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))

	policies, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"policies": policies,
		"count":    len(policies),
	})
}

// Handles GET /policies/:id
func (h *PolicyHandler) Get(c *gin.Context) {
	policy, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

// Handles PUT /policies/:id
func (h *PolicyHandler) Update(c *gin.Context) {
	in, ok := h.decode(c)
	if !ok {
		return
	}

	policy, err := h.service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

// Handles POST /policies/:id/deactivate
func (h *PolicyHandler) Deactivate(c *gin.Context) {
	policy, err := h.service.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, policyMessage{Policy: policy, Message: "Policy deactivated"})
}

// Handles DELETE /policies/:id
func (h *PolicyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Policy deleted"})
}
