package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/response"
	authSvc "github.com/simatecve/contact-pulse-engine-sub000/internal/service/auth"
)

type AuthHandler struct {
	service *authSvc.Service
}

func NewAuthHandler(service *authSvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(r *gin.RouterGroup) {
	r.POST("/auth/login", h.login)
	r.POST("/auth/register", h.register)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authSvc.ErrInvalidCredentials) {
			response.ErrorWithMessage(c, http.StatusUnauthorized, "credenciales inválidas")
			return
		}
		response.Error(c, http.StatusInternalServerError, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token, "user": user})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Email, req.Password, "user")
	if err != nil {
		if errors.Is(err, authSvc.ErrEmailTaken) {
			response.ErrorWithMessage(c, http.StatusConflict, "el email ya está registrado")
			return
		}
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}
