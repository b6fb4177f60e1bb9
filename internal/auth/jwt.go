package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret = errors.New("missing secret")
	ErrInvalidRole   = errors.New("invalid role")
)

// Roles carried by API keys. Anon keys ship with the terminal client;
// service keys may also moderate.
const (
	RoleAnon    = "anon"
	RoleService = "service"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type KeyConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

func DefaultKeyConfig(secret string) KeyConfig {
	return KeyConfig{
		Secret: secret,
		Expiry: 365 * 24 * time.Hour,
		Issuer: "termfolio",
	}
}

func ValidRole(role string) bool {
	return role == RoleAnon || role == RoleService
}

// CreateAPIKey mints a signed HS256 key for role.
func CreateAPIKey(role string, cfg KeyConfig) (string, error) {
	if cfg.Secret == "" {
		return "", ErrMissingSecret
	}
	if !ValidRole(role) {
		return "", ErrInvalidRole
	}
	if cfg.Expiry <= 0 {
		return "", errors.New("invalid expiry")
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiry)),
			ID:        uuid.NewString(),
			Subject:   role,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

func VerifyAPIKey(key string, cfg KeyConfig) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(key, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if !ValidRole(claims.Role) {
		return nil, ErrInvalidRole
	}
	return claims, nil
}
