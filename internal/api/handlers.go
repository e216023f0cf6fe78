package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/billing"
	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/calendar"
	"github.com/JustJay7/case-manager/internal/cases"
	"github.com/JustJay7/case-manager/internal/clients"
	"github.com/JustJay7/case-manager/internal/config"
	"github.com/JustJay7/case-manager/internal/dashboard"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/documents"
	"github.com/JustJay7/case-manager/internal/firm"
	"github.com/JustJay7/case-manager/internal/numbering"
	"github.com/JustJay7/case-manager/internal/session"
	"github.com/JustJay7/case-manager/internal/storage"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
	"gorm.io/gorm"
)

// Deps are the services the handlers call into.
type Deps struct {
	DB        *gorm.DB
	Cache     cache.Cache
	Auth      *auth.Service
	Sessions  *session.Store
	Clients   *clients.Service
	Cases     *cases.Service
	Firm      *firm.Service
	Documents *documents.Service
	Calendar  *calendar.Service
	Billing   *billing.Service
	Dashboard *dashboard.Service
	Storage   *storage.Store
	Logger    *logger.Logger
	Config    *config.Config
}

// Handlers holds all HTTP handlers
type Handlers struct {
	Deps
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	dbHealthy := false
	if sqlDB, err := h.DB.DB(); err == nil {
		dbHealthy = sqlDB.PingContext(c.Request.Context()) == nil
	}

	var cacheStats interface{}
	if h.Cache != nil {
		cacheStats = h.Cache.Stats()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealthy,
		"cache":    cacheStats,
		"time":     time.Now().Unix(),
	})
}

// newProvider builds a bootstrap bound to this request.
func (h *Handlers) newProvider() *session.Provider {
	return session.NewProvider(h.Auth, h.Sessions, h.Sessions, session.Config{Timeout: h.Config.BootstrapTimeout}, h.Logger.With("component", "session"))
}

// bootstrap loads the session, profile and firm settings for token.
func (h *Handlers) bootstrap(c *gin.Context, token string) session.State {
	p := h.newProvider()
	defer p.Close()

	state, err := p.Bootstrap(c.Request.Context(), token)
	if err != nil {
		h.Logger.Warn("Session bootstrap interrupted", "error", err)
	}
	return state
}

// GetSession returns the bootstrap state for the caller's token. Anonymous
// callers get an empty state rather than an error.
func (h *Handlers) GetSession(c *gin.Context) {
	state := h.bootstrap(c, auth.TokenFromRequest(c.Request))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    state,
	})
}

type credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SignUp creates an account and signs it in.
func (h *Handlers) SignUp(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.signedIn(c, sess, http.StatusCreated)
}

// Login signs an existing account in.
func (h *Handlers) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if isForm(c) && errors.Is(err, auth.ErrInvalidCredentials) {
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{
				"firmName": h.Config.FirmName,
				"email":    req.Email,
				"error":    "Invalid email or password",
			})
			return
		}
		h.fail(c, err)
		return
	}
	h.signedIn(c, sess, http.StatusOK)
}

func (h *Handlers) signedIn(c *gin.Context, sess *auth.Session, status int) {
	auth.SetCookie(c, sess)
	if isForm(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	state := h.bootstrap(c, sess.Token)
	c.JSON(status, gin.H{
		"success": true,
		"data": gin.H{
			"token":      sess.Token,
			"expires_at": sess.ExpiresAt,
			"state":      state,
		},
	})
}

// Logout revokes the caller's session and clears the cookie.
func (h *Handlers) Logout(c *gin.Context) {
	if token := auth.TokenFromRequest(c.Request); token != "" {
		if err := h.Auth.SignOut(c.Request.Context(), token); err != nil {
			h.fail(c, err)
			return
		}
	}
	auth.ClearCookie(c)

	if isForm(c) {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "signed out",
	})
}

// LoginPage renders the sign-in form.
func (h *Handlers) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"firmName": h.Config.FirmName,
	})
}

// HomePage renders the signed-in landing page.
func (h *Handlers) HomePage(c *gin.Context) {
	state := h.bootstrap(c, auth.TokenFromRequest(c.Request))
	if state.User == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	firmName := h.Config.FirmName
	if state.FirmSettings != nil && state.FirmSettings.FirmName != "" {
		firmName = state.FirmSettings.FirmName
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"firmName": firmName,
		"email":    state.User.Email,
		"error":    state.Error,
	})
}

// fail writes the error envelope for err.
func (h *Handlers) fail(c *gin.Context, err error) {
	var violations validation.Violations
	if errors.As(err, &violations) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation failed",
			"details": violations,
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{
			"success": false,
			"error":   "internal server error",
		})
		return
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case database.IsNotFound(err),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, cases.ErrClientNotFound),
		errors.Is(err, billing.ErrCaseNotFound),
		errors.Is(err, billing.ErrClientNotFound),
		errors.Is(err, dashboard.ErrUnknownFunction),
		errors.Is(err, firm.ErrUnknownCategory):
		return http.StatusNotFound

	case errors.Is(err, clients.ErrNumberConflict),
		errors.Is(err, cases.ErrNumberConflict),
		errors.Is(err, billing.ErrNumberConflict),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, firm.ErrDuplicateCategory),
		errors.Is(err, storage.ErrObjectExists),
		errors.Is(err, billing.ErrInvalidTransition):
		return http.StatusConflict

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized

	case errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, firm.ErrLogoTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, clients.ErrPrefixNotSet),
		errors.Is(err, firm.ErrUnsupportedLogo),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, numbering.ErrEmptyPrefix),
		errors.Is(err, numbering.ErrPrefixTooLong),
		errors.Is(err, numbering.ErrInvalidPrefix),
		errors.Is(err, numbering.ErrUnknownMatterType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request: " + err.Error(),
	})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// isForm reports whether the request came from an HTML form post.
func isForm(c *gin.Context) bool {
	switch c.ContentType() {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return strings.Contains(c.GetHeader("Accept"), "text/html")
	}
	return false
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
