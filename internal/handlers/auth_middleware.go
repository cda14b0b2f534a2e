package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/auth"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "user_id"
)

// AuthMiddleware verifies access tokens and loads the current account. The
// account is re-read on every request so role, fee and deletion changes
// take effect immediately rather than at token expiry.
type AuthMiddleware struct {
	tokens *auth.TokenService
	users  repositories.UserRepository
}

func NewAuthMiddleware(tokens *auth.TokenService, users repositories.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Authenticate requires a Bearer token in the Authorization header.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return m.authenticate(false)
}

// AuthenticateAllowQueryToken additionally accepts a `token` query
// parameter. Only download and preview routes use this, because browsers
// cannot attach headers to plain link navigations.
func (m *AuthMiddleware) AuthenticateAllowQueryToken() gin.HandlerFunc {
	return m.authenticate(true)
}

// AuthenticateOptional resolves the account when a token is present and
// lets anonymous requests through. A token that is present but broken is
// still rejected, so a client never browses half-authenticated.
func (m *AuthMiddleware) AuthenticateOptional() gin.HandlerFunc {
	required := m.authenticate(false)
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.Next()
			return
		}
		required(c)
	}
}

func (m *AuthMiddleware) authenticate(allowQueryToken bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && allowQueryToken {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication required",
			})
			return
		}

		claims, err := m.tokens.VerifyAccessToken(token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: message,
			})
			return
		}

		user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
					Message: "Account no longer exists",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Authentication lookup failed",
			})
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextUserIDKey, user.ID)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// RequirePaid rejects callers who have not paid the membership fee. The
// response carries requires_payment so clients can route to the upgrade
// prompt.
func (m *AuthMiddleware) RequirePaid() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsPaid() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message:         "Membership fee required",
				RequiresPayment: true,
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated account, or nil outside an
// authenticated route.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
