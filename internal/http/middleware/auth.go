package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDLocalKey holds the authenticated user id in Fiber's context locals.
const UserIDLocalKey = "user_id"

// Claims are the token claims the API relies on. Tokens are issued elsewhere.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

var (
	errMissingToken = &APIError{Status: fiber.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "missing bearer token"}
	errInvalidToken = &APIError{Status: fiber.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "invalid token"}
	errExpiredToken = &APIError{Status: fiber.StatusUnauthorized, Code: "TOKEN_EXPIRED", Message: "token expired"}
)

// Auth verifies an HS256 bearer token and stores its userId claim. The user id
// is trusted as given from here on.
func Auth(secret []byte) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			return errMissingToken
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return errExpiredToken
		case err != nil, !token.Valid, claims.UserID == "":
			return errInvalidToken
		}

		c.Locals(UserIDLocalKey, claims.UserID)
		return c.Next()
	}
}

// UserIDFromCtx returns the id stored by Auth, or "".
func UserIDFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(UserIDLocalKey).(string)
	return s
}
