// Package middleware resolves the host identity carried on an already
// issued JWT before a websocket upgrade completes. It never issues or
// refreshes tokens itself — that belongs to whatever service signs the
// host in; this only validates what it's handed, the same split
// WebSocketAuthMiddleware drew in the teacher's auth.go.
package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// HostIdentity is what survives JWT validation: enough to attribute a
// created room and an archived session to a user, nothing more.
type HostIdentity struct {
	UserID   uint
	Username string
	IsGuest  bool
}

// IdentityMiddleware validates the bearer token (header or "token"
// cookie, mirroring WebSocketAuthMiddleware's fallback) against secret
// and stores the resolved HostIdentity in fiber locals under
// "hostIdentity". A missing or invalid token is not an error here: it
// resolves to a guest identity, and it is up to the room-creation
// use-case to decide whether guests may host.
func IdentityMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("hostIdentity", guestIdentity())

		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Cookies("token")
		}
		if tokenString == "" {
			return c.Next()
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Next()
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Next()
		}
		if exp, ok := claims["exp"].(float64); !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
			return c.Next()
		}

		identity := HostIdentity{IsGuest: true}
		if uid, ok := claims["user_id"].(float64); ok {
			identity.UserID = uint(uid)
			identity.IsGuest = false
		}
		if name, ok := claims["username"].(string); ok {
			identity.Username = name
		}
		if guest, ok := claims["is_guest"].(bool); ok {
			identity.IsGuest = guest
		}
		c.Locals("hostIdentity", identity)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func guestIdentity() HostIdentity {
	return HostIdentity{Username: "Guest", IsGuest: true}
}

// Identity reads the HostIdentity a prior IdentityMiddleware call
// stored on the request.
func Identity(c *fiber.Ctx) HostIdentity {
	if v, ok := c.Locals("hostIdentity").(HostIdentity); ok {
		return v
	}
	return guestIdentity()
}
