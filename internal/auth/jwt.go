package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/araliya/storefront/pkg/middleware"
)

// Claims represents the JWT claims carried by an access token issued by the
// user service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates access tokens issued by the user service. The
// storefront never mints tokens; it only checks them and forwards the raw
// bearer token downstream.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier creates a verifier for the shared HS256 signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		leeway: 30 * time.Second,
	}
}

// Verify parses and validates an access token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("access token has no user id")
	}

	return claims, nil
}

// TokenValidator adapts the verifier to the auth middleware.
func (v *Verifier) TokenValidator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		claims, err := v.Verify(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}
}
