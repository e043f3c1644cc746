package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

var (
	ErrInvalidJWTToken = errors.New("JWT token is invalid")
	ErrExpiredJWTToken = errors.New("JWT token is expired")
	ErrMissingSecret   = errors.New("JWT signing secret is not set")
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

type JWTManagerInterface interface {
	GenerateAccessToken(userID string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	Verify(tokenString string, kind TokenKind) (string, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type TokenClaims struct {
	UserID string    `json:"user_id"`
	Kind   TokenKind `json:"typ"`
	jwt.StandardClaims
}

// JWTManager signs access and refresh tokens with separate secrets.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*JWTManager, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (j *JWTManager) AccessTTL() time.Duration  { return j.accessTTL }
func (j *JWTManager) RefreshTTL() time.Duration { return j.refreshTTL }

func (j *JWTManager) GenerateAccessToken(userID string) (string, error) {
	return j.sign(userID, AccessToken)
}

func (j *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	return j.sign(userID, RefreshToken)
}

func (j *JWTManager) secretFor(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case AccessToken:
		return j.accessSecret, j.accessTTL, nil
	case RefreshToken:
		return j.refreshSecret, j.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %q", kind)
	}
}

// sign stamps a random jti so two tokens issued in the same second differ.
func (j *JWTManager) sign(userID string, kind TokenKind) (string, error) {
	secret, ttl, err := j.secretFor(kind)
	if err != nil {
		return "", err
	}
	now := j.now()
	claims := &TokenClaims{
		UserID: userID,
		Kind:   kind,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify checks signature, algorithm, expiry and kind, returning the user id.
func (j *JWTManager) Verify(tokenString string, kind TokenKind) (string, error) {
	secret, _, err := j.secretFor(kind)
	if err != nil {
		return "", err
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) {
			if validationErr.Errors&(jwt.ValidationErrorExpired) != 0 {
				return "", ErrExpiredJWTToken
			}
		}
		return "", ErrInvalidJWTToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.Kind != kind {
		return "", ErrInvalidJWTToken
	}

	return claims.UserID, nil
}
