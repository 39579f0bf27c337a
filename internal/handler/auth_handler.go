package handler

import (
	"context"
	"net/http"
	"time"

	"tourdesk/internal/middleware"
	"tourdesk/internal/model"
	"tourdesk/internal/service"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieConfig controls the access-token cookie set on login
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	authService  service.AuthService
	userService  service.UserService
	resetService service.PasswordResetService
	cookie       CookieConfig
	log          *zap.Logger
}

// NewAuthHandler sets up the routing dependencies for login, registration and password reset
func NewAuthHandler(authService service.AuthService, userService service.UserService, resetService service.PasswordResetService, cookie CookieConfig, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		userService:  userService,
		resetService: resetService,
		cookie:       cookie,
		log:          log,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	anyone := auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin, model.RoleUser)
	throttled := middleware.IPRateLimit(1, 5)

	group := router.Group("/api/auth")
	{
		group.POST("/register", throttled, h.Register)
		group.POST("/login", throttled, h.Login)
		group.POST("/admin/login", throttled, h.AdminLogin)
		group.POST("/logout", anyone, h.Logout)
		group.GET("/me", anyone, h.Me)

		group.POST("/forgot-password", throttled, h.ForgotPassword)
		group.POST("/verify-reset-code", throttled, h.VerifyResetCode)
		group.POST("/reset-password", throttled, h.ResetPassword)
	}
	router.GET("/api/me", anyone, h.Me)
}

// Register handles applicant self-registration
// @Summary      Register
// @Description  Creates a pending user account after running every step of the user wizard
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UserForm  true  "Registration form"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var form service.UserForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login authenticates an approved user and starts a new session
// @Summary      Login user
// @Description  Authenticates a user by email and password. Pending and declined accounts are refused.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, h.authService.LoginUser)
}

// AdminLogin authenticates a dashboard operator
// @Summary      Login admin
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, h.authService.LoginAdmin)
}

func (h *AuthHandler) login(c *gin.Context, fn func(ctx context.Context, req service.LoginRequest) (*service.LoginResponse, error)) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	res, err := fn(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetTokenCookie(c, res.Token, h.cookie.TTL, h.cookie.Secure)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout ends the caller's session
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.Actor(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	middleware.ClearTokenCookie(c, h.cookie.Secure)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out"}))
}

// Me returns the authenticated account
// @Summary      Get current account
// @Description  Returns the admin or the user (with document URLs and approval info) behind the token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	me, err := h.authService.Me(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}

// ForgotPassword emails a one-time reset code
// @Summary      Request a password reset code
// @Description  Replies with a bare {success, message} or {error} body instead of the envelope.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ForgotPasswordRequest  true  "Account email"
// @Success      200      {object}  response.Ack
// @Failure      400      {object}  response.Problem
// @Failure      404      {object}  response.Problem
// @Failure      429      {object}  response.Problem
// @Failure      500      {object}  response.Problem
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req service.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Problem{Error: "Email is required."})
		return
	}

	if err := h.resetService.RequestCode(c.Request.Context(), req.Email); err != nil {
		h.problem(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Ack{Success: true, Message: "A reset code has been sent to your email."})
}

// VerifyResetCode checks a reset code without consuming it
// @Summary      Verify a reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VerifyResetCodeRequest  true  "Email and code"
// @Success      200      {object}  response.Ack
// @Failure      400      {object}  response.Problem
// @Failure      404      {object}  response.Problem
// @Router       /api/auth/verify-reset-code [post]
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req service.VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Problem{Error: "Email and code are required."})
		return
	}

	if err := h.resetService.VerifyCode(c.Request.Context(), req.Email, req.Code); err != nil {
		h.problem(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Ack{Success: true, Message: "Code verified."})
}

// ResetPassword sets a new password using a valid reset code
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ResetPasswordRequest  true  "Email, code and new password"
// @Success      200      {object}  response.Ack
// @Failure      400      {object}  response.Problem
// @Failure      404      {object}  response.Problem
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Problem{Error: "Email, code and new password are required."})
		return
	}

	if err := h.resetService.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.problem(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Ack{Success: true, Message: "Your password has been reset. You can now log in."})
}

func (h *AuthHandler) problem(c *gin.Context, err error) {
	code, msg := errorMessage(c, h.log, err)
	c.JSON(code, response.Problem{Error: msg})
}
