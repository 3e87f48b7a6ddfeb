package handler

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/middleware"
	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/internal/repository"
	"github.com/noah-isme/school-attendance/internal/service"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/logger"
	"github.com/noah-isme/school-attendance/pkg/response"
)

type accountService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	RevokeToken(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, store service.ResetCodeStore, req models.ForgotPasswordRequest) (*models.ForgotPasswordResult, error)
	VerifyResetCode(ctx context.Context, store service.ResetCodeStore, req models.ResetCodeRequest) error
	ResetPassword(ctx context.Context, store service.ResetCodeStore, req models.ResetPasswordRequest) error
}

// ResetStoreResolver picks the reset code ledger for a request.
type ResetStoreResolver func(c *gin.Context) service.ResetCodeStore

// SessionResetStore keeps reset codes in the caller's session, so a code only
// works in the browser that requested it.
func SessionResetStore(c *gin.Context) service.ResetCodeStore {
	return repository.NewSessionResetCodeStore(sessions.Default(c))
}

// SharedResetStore uses one process-wide ledger for every request.
func SharedResetStore(store service.ResetCodeStore) ResetStoreResolver {
	return func(*gin.Context) service.ResetCodeStore { return store }
}

// AccountHandler serves login, logout and the password reset flow.
type AccountHandler struct {
	service    accountService
	resetStore ResetStoreResolver
	logger     *zap.Logger
}

// NewAccountHandler constructs an AccountHandler. A nil resolver keeps codes in the session.
func NewAccountHandler(svc accountService, resetStore ResetStoreResolver, logger *zap.Logger) *AccountHandler {
	if resetStore == nil {
		resetStore = SessionResetStore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{service: svc, resetStore: resetStore, logger: logger}
}

// LoginPage godoc
// @Summary Login page
// @Description Redirects an authenticated caller to their dashboard
// @Tags Account
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to dashboard"
// @Router /account/login [get]
func (h *AccountHandler) LoginPage(c *gin.Context) {
	if identity, ok := identityFromContext(c); ok {
		response.Redirect(c, homeURL(identity))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"authenticated": false, "messages": popFlashes(c)})
}

// Login godoc
// @Summary Authenticate teacher or student
// @Description Checks teachers first, then students. XHR callers receive JSON instead of a redirect.
// @Tags Account
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to landing page"
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /account/login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.loginFailed(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, service.MessageMissingCredentials))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.loginFailed(c, err)
		return
	}
	if err := middleware.SaveIdentity(c, result.Identity); err != nil {
		logger.FromContext(c, h.logger).Error("save session", zap.Error(err))
		h.loginFailed(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start session"))
		return
	}
	c.Set(logger.RoleContextKey, string(result.Identity.Role))

	target := homeURL(result.Identity)
	if result.ActiveClassID > 0 {
		target = attendanceURL(result.ActiveClassID)
	}
	if !middleware.IsMachineRequest(c) {
		response.Redirect(c, target)
		return
	}
	response.JSON(c, http.StatusOK, models.LoginResponse{Success: true, RedirectURL: target, AccessToken: result.AccessToken})
}

func (h *AccountHandler) loginFailed(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if !middleware.IsMachineRequest(c) {
		response.Error(c, appErr)
		return
	}
	response.JSON(c, appErr.Status, models.LoginResponse{ErrorMessage: appErr.Message})
}

// Logout godoc
// @Summary Log out
// @Description Clears every session value and revokes the bearer token, if any
// @Tags Account
// @Success 204
// @Success 302 {string} string "redirect to login"
// @Router /account/logout [post]
func (h *AccountHandler) Logout(c *gin.Context) {
	if token, ok := middleware.BearerToken(c); ok {
		if err := h.service.RevokeToken(c.Request.Context(), token); err != nil {
			response.Error(c, err)
			return
		}
	}
	if err := middleware.ClearSession(c); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session"))
		return
	}
	if middleware.IsMachineRequest(c) {
		response.NoContent(c)
		return
	}
	response.Redirect(c, middleware.LoginPath)
}

// ForgotPassword godoc
// @Summary Request a password reset code
// @Tags Account
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.ForgotPasswordRequest true "Email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /account/forgot-password [post]
func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, service.MessageMissingEmail))
		return
	}
	result, err := h.service.ForgotPassword(c.Request.Context(), h.resetStore(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// VerifyResetCode godoc
// @Summary Check a reset code without using it
// @Tags Account
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.ResetCodeRequest true "Email and code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /account/reset-code [post]
func (h *AccountHandler) VerifyResetCode(c *gin.Context) {
	var req models.ResetCodeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, service.MessageMissingCode))
		return
	}
	if err := h.service.VerifyResetCode(c.Request.Context(), h.resetStore(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": true, "email": req.Email})
}

// ResetPassword godoc
// @Summary Set a new password with a reset code
// @Tags Account
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.ResetPasswordRequest true "Email, code and new password"
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to login"
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /account/reset-password [post]
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, service.MessageMissingResetFields))
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), h.resetStore(c), req); err != nil {
		response.Error(c, err)
		return
	}
	if middleware.IsMachineRequest(c) {
		response.JSON(c, http.StatusOK, gin.H{"message": service.MessagePasswordUpdated})
		return
	}
	pushFlash(c, service.MessagePasswordUpdated)
	response.Redirect(c, middleware.LoginPath)
}
