package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mercatokart/storefront/internal/constants"
	inErrors "github.com/mercatokart/storefront/internal/errors"
)

type userIdKey struct{}

func AttachUserIdToContext(c context.Context, id uuid.UUID) context.Context {
	return context.WithValue(c, userIdKey{}, id)
}

func UserIdFromContext(c context.Context) (uuid.UUID, error) {
	id, ok := c.Value(userIdKey{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, inErrors.ErrEmptyAuth
	}
	return id, nil
}

// Mint issues an HS256 login token for the user, valid for 30 minutes.
func Mint(secretKey string, userID uuid.UUID, now time.Time) (string, error) {
	t := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{constants.AudienceCustomer},
			Issuer:    constants.AppStorefront,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	)
	signed, err := t.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed signing token with error=%w", err)
	}
	return signed, nil
}

// Verify parses and validates a login token and returns the user id
// carried in the subject claim.
func Verify(secretKey string, token string) (uuid.UUID, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
		jwt.WithAudience(constants.AudienceCustomer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.AppStorefront),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed parsing with claims with error=%w", err)
	}
	if !parsed.Valid {
		return uuid.Nil, inErrors.ErrTokenInvalid
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed parsing subject with error=%w", err)
	}
	return userID, nil
}
