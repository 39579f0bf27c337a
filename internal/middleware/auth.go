package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/service"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Context keys set by RequireRole
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"

	AccessTokenCookie = "access_token"
)

// Claims is the access token payload. Sid binds a user token to the one
// session stored on the account.
type Claims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 access tokens
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

// Secret exposes the signing key for the websocket handshake.
func (m *JWTManager) Secret() []byte { return m.secret }

func (m *JWTManager) TTL() time.Duration { return m.ttl }

// Issue implements service.TokenIssuer
func (m *JWTManager) Issue(subject, role, sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	claims := Claims{
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SessionChecker confirms a user token still matches the stored session
type SessionChecker interface {
	ValidateSession(ctx context.Context, userID, sessionID string) (bool, error)
}

// Authenticator guards routes by role
type Authenticator struct {
	tokens   *JWTManager
	sessions SessionChecker
	log      *zap.Logger
}

func NewAuthenticator(tokens *JWTManager, sessions SessionChecker, log *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, log: log}
}

// CSRFHeader must accompany state-changing requests authenticated by cookie.
// Browsers never attach custom headers to cross-site form posts.
const CSRFHeader = "X-Requested-With"

// tokenFromRequest prefers the Authorization header and falls back to the cookie.
func tokenFromRequest(c *gin.Context) (token string, fromCookie bool, problem string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
			return token, true, ""
		}
		return "", false, "Authorization is missing"
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false, "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], false, ""
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RequireRole validates the token and checks its role against allowedRoles.
// User tokens must also carry the current session id.
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, fromCookie, problem := tokenFromRequest(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}
		if fromCookie && !safeMethod(c.Request.Method) && c.GetHeader(CSRFHeader) == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Missing "+CSRFHeader+" header"))
			return
		}
		claims, err := a.tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		allowed := false
		for _, role := range allowedRoles {
			if claims.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		if claims.Role == model.RoleUser && a.sessions != nil {
			ok, err := a.sessions.ValidateSession(c.Request.Context(), claims.Subject, claims.SessionID)
			if err != nil {
				a.log.Error("session check failed", zap.String("user_id", claims.Subject), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify session"))
				return
			}
			if !ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Session expired. Please log in again."))
				return
			}
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// Actor returns the authenticated caller set by RequireRole.
func Actor(c *gin.Context) service.Actor {
	return service.Actor{ID: c.GetString(ContextUserID), Role: c.GetString(ContextRole)}
}

// SetTokenCookie stores the access token as an HttpOnly cookie. Cross-site
// deployments need SameSite=None with Secure.
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(AccessTokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func ClearTokenCookie(c *gin.Context, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
