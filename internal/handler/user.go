package handler

import (
	"net/http"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
	respond Responder
}

func NewUserHandler(service *service.UserService, respond Responder) *UserHandler {
	return &UserHandler{service: service, respond: respond}
}

func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":     u.ID,
		"email":  u.Email,
		"status": u.Status,
	}
}

// Handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := bind(c, &req, invalidRequest); err != nil {
		h.respond.Error(c, err)
		return
	}

	user, err := h.service.Create(c.Request.Context(), req.UserID, req.Email)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse(user))
}

// Handles GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}
