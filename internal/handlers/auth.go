package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Aadiaditya9421/hospital-management-system/internal/middleware"
	"github.com/Aadiaditya9421/hospital-management-system/internal/services"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Identity *services.IdentityService
	Sessions *services.SessionService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity *services.IdentityService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{Identity: identity, Sessions: sessions}
}

// RegisterRequest represents the request body for patient registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register handles patient self-registration. Clinicians and administrators
// are created by an administrator.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, err := h.Identity.RegisterPatient(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Created(c, "Patient registered successfully", patient.Sanitize())
}

// LoginRequest represents the request body for login. Identifier is an email
// for clinicians and patients and a login name for administrators.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res, err := h.Sessions.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Login successful", res)
}

// RefreshTokenRequest represents the request body for refreshing a token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken rotates a refresh token and issues a new access token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res, err := h.Sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Token refreshed successfully", res)
}

// LogoutRequest optionally names the refresh token to revoke with the
// access token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the presented access token and the given refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	// An empty body is allowed.
	_ = c.ShouldBindJSON(&req)

	claims, ok := middleware.GetClaimsFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Sessions.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Logged out successfully", nil)
}

// GetProfile returns the authenticated principal, resolved in the collection
// named by the token's role.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}

	principal, err := h.Identity.Resolve(c.Request.Context(), *ref)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", principal.Sanitize())
}
