package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/models"
)

// Claims represents JWT claims
type Claims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Verifier resolves a bearer credential to its subject
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// JWTVerifier validates HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTVerifier creates a verifier for the given secret
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), ttl: 24 * time.Hour}
}

// GenerateToken signs a token for a user. Issuance normally happens in the auth service;
// this exists for tooling and tests.
func (v *JWTVerifier) GenerateToken(userID string, role models.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates and parses a JWT token
func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperror.ErrMissingCredential
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidCredential, err)
	}

	if !token.Valid {
		return nil, apperror.Wrap(apperror.ErrInvalidCredential, jwt.ErrSignatureInvalid)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidCredential, errors.New("token has no subject"))
	}

	return claims, nil
}
