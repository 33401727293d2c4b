package app

import (
	"net/http"
	"strings"

	"library-lending/auth"
	"library-lending/db"
	"library-lending/models"
	"library-lending/permissions"

	"github.com/gin-gonic/gin"
)

const userCtxKey = "currentUser"

// AuthRequired 验证 Bearer token，加载用户（含 overrides）放进 Context.
func AuthRequired(repo *db.Repo, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid authorization header"})
			return
		}

		claims, err := auth.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid or expired token"})
			return
		}

		// 确认用户仍存在（只查一次，handlers 复用）
		u, err := repo.FindUserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !u.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "inactive user"})
			return
		}

		c.Set(userCtxKey, u)
		c.Next()
	}
}

// CurrentUser returns the authenticated user placed by AuthRequired,
// or nil when the middleware did not run.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userCtxKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// SetCurrentUser injects a user directly, for handler tests.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(userCtxKey, u)
}

// EffectivePermissions resolves the user's permission set; superusers
// bypass resolution and hold every token.
func EffectivePermissions(u *models.User) permissions.Set {
	if u.IsSuperuser {
		return permissions.All()
	}
	return permissions.Resolve(u.Role, u.ResolverOverrides())
}

// RequirePermission gates a route on one resolved permission token.
func RequirePermission(p permissions.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !EffectivePermissions(u).Has(p) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireAnyPermission gates a route on at least one of the given tokens.
func RequireAnyPermission(ps ...permissions.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		set := EffectivePermissions(u)
		for _, p := range ps {
			if set.Has(p) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
	}
}

// SuperuserOnly gates a route on the superuser flag; role and overrides
// are irrelevant here.
func SuperuserOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !u.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
