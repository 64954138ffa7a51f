// Package owner resolves the authenticated user of a request and scopes
// queries to the rows that user owns.
package owner

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocalKey is where the JWT middleware stores the parsed token.
const LocalKey = "user"

var ErrNoUser = errors.New("no authenticated user")

// UserID extracts the user UUID from the JWT claims in context.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(LocalKey).(*jwt.Token)
	if !ok {
		return uuid.Nil, ErrNoUser
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// Scope restricts a query to rows whose user_id is userID.
func Scope(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
