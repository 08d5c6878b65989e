package gin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/exceedlab/blogd/config"
	"github.com/exceedlab/blogd/domain"
	"github.com/exceedlab/blogd/services"
)

// UserAPI struct to hold dependencies.
type UserAPI struct {
	sessions *services.SessionService
	users    *services.UserService
	cfg      *config.ServerConfig
}

// NewUserAPI initializes the user/session API.
func NewUserAPI(sessions *services.SessionService, users *services.UserService, cfg *config.ServerConfig) *UserAPI {
	return &UserAPI{
		sessions: sessions,
		users:    users,
		cfg:      cfg,
	}
}

// RegisterRoutes registers the user routes. Routes without RequireAuth form
// the unauthenticated allow-list; everything else needs a non-rejected pass
// through Authenticate plus an attached identity.
func (ua *UserAPI) RegisterRoutes(e *gin.Engine) {
	g := e.Group("/api/users")
	g.POST("/register", ua.RegisterHandler)
	g.POST("/login", ua.LoginHandler)
	g.POST("/refresh", ua.RefreshHandler)
	g.POST("/logout", ua.LogoutHandler)
	g.POST("/forgotPassword", ua.ForgotPasswordHandler)
	g.POST("/changePassword", ua.ChangePasswordHandler)
	g.GET("/me", RequireAuth(), ua.MeHandler)
}

type registerRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Nickname string `json:"nickname"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	UserID string `json:"userId" binding:"required"`
	Email  string `json:"email" binding:"required"`
}

type changePasswordRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code": "unauthorized",
		"msg":  "Unauthorized",
	})
}

// setTokenCookies delivers the pair as httpOnly cookies with max-ages
// matching the signed lifetimes.
func (ua *UserAPI) setTokenCookies(c *gin.Context, pair *services.TokenPair) {
	c.SetSameSite(ua.cfg.SameSite())
	c.SetCookie(AccessTokenCookie, pair.AccessToken,
		int(ua.sessions.AccessTokenTTL().Seconds()), "/", ua.cfg.CookieDomain, ua.cfg.CookieSecure, true)
	c.SetCookie(RefreshTokenCookie, pair.RefreshToken,
		int(ua.sessions.RefreshTokenTTL().Seconds()), "/", ua.cfg.CookieDomain, ua.cfg.CookieSecure, true)
}

func (ua *UserAPI) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(ua.cfg.SameSite())
	c.SetCookie(AccessTokenCookie, "", -1, "/", ua.cfg.CookieDomain, ua.cfg.CookieSecure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", ua.cfg.CookieDomain, ua.cfg.CookieSecure, true)
}

// RegisterHandler handles account creation.
func (ua *UserAPI) RegisterHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "msg": "Invalid request body"})
		return
	}

	err := ua.users.Register(c.Request.Context(), req.UserID, req.Email, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"code": "user_duplicate", "msg": "User already exists"})
			return
		}
		log.Error().Err(err).Msg("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error", "msg": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "registration complete"})
}

// LoginHandler checks credentials, issues the token pair and sets both
// cookies. Failures never reveal whether the user exists.
func (ua *UserAPI) LoginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "msg": "Invalid request body"})
		return
	}

	pair, err := ua.sessions.Login(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			unauthorized(c)
			return
		}
		log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error", "msg": "Internal server error"})
		return
	}

	ua.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"userId":      req.UserID,
		"accessToken": pair.AccessToken,
		"message":     "login successful",
	})
}

// RefreshHandler rotates the token pair using the refresh cookie. Every
// failure mode renders the same unauthorized shape.
func (ua *UserAPI) RefreshHandler(c *gin.Context) {
	presented, err := c.Cookie(RefreshTokenCookie)
	if err != nil || presented == "" {
		unauthorized(c)
		return
	}

	pair, err := ua.sessions.Refresh(c.Request.Context(), presented)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrTokenMismatch) {
			unauthorized(c)
			return
		}
		log.Error().Err(err).Msg("token refresh failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error", "msg": "Internal server error"})
		return
	}

	ua.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken})
}

// LogoutHandler blacklists the presented access token and clears both
// cookies. An absent or invalid token is already logged out, not an error.
func (ua *UserAPI) LogoutHandler(c *gin.Context) {
	tokenValue := extractToken(c)

	if err := ua.sessions.Logout(c.Request.Context(), tokenValue); err != nil {
		// The blacklist write failed; the cookies are still cleared below so
		// the client forgets its credentials either way.
		log.Error().Err(err).Msg("logout failed to blacklist token")
	}

	ua.clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// MeHandler returns the authenticated user's profile.
func (ua *UserAPI) MeHandler(c *gin.Context) {
	userID, ok := AuthenticatedUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	user, err := ua.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "user_not_found", "msg": "User not found"})
			return
		}
		log.Error().Err(err).Msg("profile lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error", "msg": "Internal server error"})
		return
	}

	// Password hash and refresh token never leave the server.
	c.JSON(http.StatusOK, gin.H{
		"userId":   user.ID,
		"email":    user.Email,
		"nickname": user.Nickname,
	})
}

// ForgotPasswordHandler confirms that a userId/email pair exists.
func (ua *UserAPI) ForgotPasswordHandler(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "msg": "Invalid request body"})
		return
	}

	if err := ua.users.ForgotPassword(c.Request.Context(), req.UserID, req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "msg": "No account matches that user and email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"isSuccess": true, "message": "account verified"})
}

// ChangePasswordHandler stores a new password after the recovery check.
func (ua *UserAPI) ChangePasswordHandler(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "msg": "Invalid request body"})
		return
	}

	if err := ua.users.ChangePassword(c.Request.Context(), req.UserID, req.Password); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "msg": "No such account"})
			return
		}
		log.Error().Err(err).Msg("password change failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error", "msg": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
