package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saqreed/super-sto-sub000/internal/handler"
	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/pkg/auth"
)

const ContextActor = "actor"

type AuthMiddleware struct {
	jwtSvc auth.JWTService
}

func NewAuthMiddleware(jwtSvc auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc}
}

// Authenticate verifies the bearer token and puts the Actor in context.
// The identity provider issued the token; role claims are trusted as is.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.jwtSvc.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		role := model.Role(claims.Role)
		if !role.Valid() {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unknown role"))
			c.Abort()
			return
		}

		c.Set(ContextActor, model.Actor{ID: claims.ActorID, Role: role})
		c.Next()
	}
}

// ActorFrom extracts the authenticated actor placed by Authenticate.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
