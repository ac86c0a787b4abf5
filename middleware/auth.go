package middleware

import (
	"fmt"
	"strings"

	"storefront-service/apperrors"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ActorContextKey is the gin context key holding the services.Actor.
const ActorContextKey = "actor"

// Auth validates HS256 bearer tokens issued by the account service. The
// token carries the user id in "sub" and the role in "role".
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(strings.TrimSpace(secret))}
}

// Optional attaches the actor when a bearer token is present. Requests
// without one continue as guests; a present but invalid token is rejected.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		actor, err := a.parse(token)
		if err != nil {
			apperrors.Respond(c, apperrors.Unauthorized("invalid or expired token"))
			return
		}
		c.Set(ActorContextKey, actor)
		c.Next()
	}
}

// Required rejects requests without a valid bearer token.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			apperrors.Respond(c, apperrors.Unauthorized("missing token"))
			return
		}
		actor, err := a.parse(token)
		if err != nil {
			apperrors.Respond(c, apperrors.Unauthorized("invalid or expired token"))
			return
		}
		c.Set(ActorContextKey, actor)
		c.Next()
	}
}

// RequireRole must run after Required.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).Role != role {
			apperrors.Respond(c, apperrors.Forbidden("access denied"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, or a guest.
func ActorFrom(c *gin.Context) services.Actor {
	if v, ok := c.Get(ActorContextKey); ok {
		if actor, ok := v.(services.Actor); ok {
			return actor
		}
	}
	return services.Actor{}
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (a *Auth) parse(tokenStr string) (services.Actor, error) {
	if len(a.secret) == 0 {
		return services.Actor{}, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return services.Actor{}, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Actor{}, fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return services.Actor{}, fmt.Errorf("invalid subject: %w", err)
	}
	role, _ := claims["role"].(string)
	if role != services.RoleAdmin {
		role = services.RoleCustomer
	}
	return services.Actor{ID: &id, Role: role}, nil
}
