package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"busticket/internal/domain"
	"busticket/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// Identity resolves who is calling. With a secret it verifies an HS256
// bearer token whose user_id (or sub) and role claims name the user; an
// invalid token is rejected. Without a secret it trusts the X-User-ID and
// X-User-Role headers set by an upstream gateway. Requests without any
// identity continue anonymously.
func Identity(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		var rc domain.RequestContext
		if secret != "" {
			raw := bearerToken(c.GetHeader("Authorization"))
			if raw == "" {
				c.Next()
				return
			}
			parsed, err := parseToken(raw, key)
			if err != nil {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			rc = parsed
		} else if id, ok := utils.ParseID(c.GetHeader("X-User-ID")); ok {
			rc = domain.RequestContext{UserID: domain.ID(id), Role: normalizeRole(c.GetHeader("X-User-Role"))}
		}

		if rc.Authenticated() {
			c.Set(userIDKey, int64(rc.UserID))
			c.Set(userRoleKey, rc.Role)
			c.Request = c.Request.WithContext(domain.WithRequestContext(c.Request.Context(), rc))
		}
		c.Next()
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity attached by Identity.
func CurrentUser(c *gin.Context) (domain.RequestContext, bool) {
	id := c.GetInt64(userIDKey)
	if id <= 0 {
		return domain.RequestContext{}, false
	}
	return domain.RequestContext{UserID: domain.ID(id), Role: c.GetString(userRoleKey)}, true
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func parseToken(raw string, key []byte) (domain.RequestContext, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.RequestContext{}, err
	}

	id, err := userIDClaim(claims)
	if err != nil {
		return domain.RequestContext{}, err
	}
	role, _ := claims["role"].(string)
	return domain.RequestContext{UserID: domain.ID(id), Role: normalizeRole(role)}, nil
}

func userIDClaim(claims jwt.MapClaims) (int64, error) {
	switch v := claims["user_id"].(type) {
	case float64:
		if v > 0 {
			return int64(v), nil
		}
	case string:
		if id, ok := utils.ParseID(v); ok {
			return id, nil
		}
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	if id, err := strconv.ParseInt(sub, 10, 64); err == nil && id > 0 {
		return id, nil
	}
	return 0, errors.New("token has no usable user id")
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return domain.RoleCustomer
	}
	return role
}
