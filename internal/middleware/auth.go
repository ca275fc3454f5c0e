package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/revocation"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

const (
	principalKey = "principal"
	claimsKey    = "claims"
)

// AuthMiddleware creates a middleware for JWT authentication. The token names
// the principal by role and id; both are placed on the context.
func AuthMiddleware(cfg *config.Config, revoked revocation.Store, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.WithComponent("auth").WithError(err).Error("Revocation check failed")
			utils.InternalServerError(c, "Internal server error")
			c.Abort()
			return
		}
		if isRevoked {
			utils.Unauthorized(c, "Token has been revoked")
			c.Abort()
			return
		}

		c.Set(principalKey, claims.Ref())
		c.Set(claimsKey, claims)

		c.Next()
	}
}

// RoleAuthMiddleware rejects principals whose role is not listed. It should
// be used *after* AuthMiddleware; ownership is checked by the services.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := GetPrincipalFromContext(c)
		if !ok {
			utils.InternalServerError(c, "Principal not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if ref.Role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// GetPrincipalFromContext returns the authenticated principal, if any.
func GetPrincipalFromContext(c *gin.Context) (*models.PrincipalRef, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	ref, ok := v.(models.PrincipalRef)
	if !ok {
		return nil, false
	}
	return &ref, true
}

// GetClaimsFromContext returns the validated access token claims.
func GetClaimsFromContext(c *gin.Context) (*utils.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}
