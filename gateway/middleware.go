package gateway

import (
	"net/http"
	"strings"

	"github.com/example/hottubshop/pkg/cart"
	"github.com/example/hottubshop/pkg/config"
	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/session"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ctxUserID  = "userId"
	ctxRole    = "role"
	ctxSession = "session"
)

// identityMiddleware resolves the bearer token into a user id and role. Requests without an
// Authorization header continue as guests.
func identityMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			logger.Warn("Rejected token", zap.String("reason", "invalid format"))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if secret == "" {
			logger.Warn("Rejected token", zap.String("reason", "auth.jwt_secret not configured"))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			logger.Warn("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		sub, err := claims.GetSubject()
		if err != nil || strings.TrimSpace(sub) == "" {
			logger.Warn("Rejected token", zap.String("reason", "sub claim missing"))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		role, _ := claims["role"].(string)

		c.Set(ctxUserID, sub)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// sessionMiddleware attaches the session named by the session cookie, issuing a fresh
// cookie when none or an unusable one was sent.
func sessionMiddleware(store session.Store, cfg *config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, sid, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
		}
		c.Set(ctxSession, store.Open(sid))
		c.Next()
	}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		if !strings.EqualFold(c.GetString(ctxRole), role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func owner(c *gin.Context) cart.Owner {
	o := cart.Owner{UserID: c.GetString(ctxUserID)}
	if s, ok := c.Get(ctxSession); ok {
		o.Session, _ = s.(session.Session)
	}
	return o
}

func language(c *gin.Context) string {
	return models.NormalizeLanguage(c.Query("lang"))
}
