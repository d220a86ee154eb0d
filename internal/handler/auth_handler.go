package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealhub/internal/service/auth"
	"dealhub/internal/utils"
)

// RegisterRequest registration request body
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required,min=5,max=16"`
	Password string `json:"password" binding:"required,min=6,max=64"`
	Nickname string `json:"nickname" binding:"required,min=1,max=32"`
}

// LoginRequest login request body
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler registration and login handler
type AuthHandler struct {
	authService auth.AuthService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(authService auth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register registers a new user
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Phone, req.Password, req.Nickname)
	if err != nil {
		if errors.Is(err, auth.ErrPhoneTaken) {
			utils.ErrorResponse(c, http.StatusConflict, "Phone already registered")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	utils.SuccessResponse(c, gin.H{"id": user.ID, "nickname": user.Nickname})
}

// Login logs a user in
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid phone or password")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Login failed")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token":    token,
		"id":       user.ID,
		"nickname": user.Nickname,
	})
}
