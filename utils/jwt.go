package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
)

// Token audiences. An upload token must never be accepted as a session and vice versa.
const (
	audienceAdmin  = "admin"
	audienceUpload = "upload"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims defines the admin session claims.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UploadClaims authorize a single PUT of one object key.
type UploadClaims struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	MaxBytes    int64  `json:"max_bytes"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with one secret.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg config.JWTSection) *TokenIssuer {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of session tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// GenerateToken issues a session token for the admin identity.
func (t *TokenIssuer) GenerateToken(userID uint, username string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		UserID:           userID,
		Username:         username,
		RegisteredClaims: t.registered(audienceAdmin, now, exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return s, exp, err
}

// ParseToken validates a session token and returns its claims.
func (t *TokenIssuer) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := t.parse(tokenStr, claims, audienceAdmin); err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateUploadToken signs a short-lived grant to PUT exactly one key.
func (t *TokenIssuer) GenerateUploadToken(key, contentType string, maxBytes int64, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(ttl)
	claims := UploadClaims{
		Key:              key,
		ContentType:      contentType,
		MaxBytes:         maxBytes,
		RegisteredClaims: t.registered(audienceUpload, now, exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return s, exp, err
}

// ParseUploadToken validates an upload grant.
func (t *TokenIssuer) ParseUploadToken(tokenStr string) (*UploadClaims, error) {
	claims := &UploadClaims{}
	if err := t.parse(tokenStr, claims, audienceUpload); err != nil {
		return nil, err
	}
	if claims.Key == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) registered(aud string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    t.issuer,
		Audience:  jwt.ClaimStrings{aud},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (t *TokenIssuer) parse(tokenStr string, claims jwt.Claims, aud string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(aud),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
