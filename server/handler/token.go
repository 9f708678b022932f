package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid join token")

// JoinClaims は参加トークンのクレームです。Ship は機体モデルを指定します。
type JoinClaims struct {
	Ship string `json:"ship,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier はHS256で署名された参加トークンを検証します。
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(raw string) (*JoinClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}
	claims := &JoinClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Issue は機体モデルを埋め込んだトークンを発行します。ボットやテストから使います。
func (v *TokenVerifier) Issue(subject, ship string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JoinClaims{
		Ship: ship,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
