package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

var (
	ErrNotAuthenticated    = apperror.Unauthorized("Not authorized, please log in")
	ErrInvalidAccessToken  = apperror.Unauthorized("Not authorized, invalid token")
	ErrUserNoLongerExists  = apperror.Unauthorized("User no longer exists")
	ErrUserDeactivated     = apperror.Unauthorized("User account is deactivated")
	ErrNoRefreshToken      = apperror.Unauthorized("No refresh token provided")
	ErrInvalidRefreshToken = apperror.Unauthorized("Invalid refresh token")
)

// Session is the outcome of a successful register, login or refresh.
type Session struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
}

type Service interface {
	Register(ctx context.Context, name, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, userID string) error
	ResolveUser(ctx context.Context, accessToken string) (*user.User, error)
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
	OptionalSessionMiddleware() func(http.Handler) http.Handler
}

type service struct {
	userService  user.Service
	jwtManager   JWTManagerInterface
	respondError httpx.ErrorResponder
	now          func() time.Time
}

func NewAuthService(userService user.Service, jwtManager JWTManagerInterface, respondError httpx.ErrorResponder) Service {
	return &service{
		userService:  userService,
		jwtManager:   jwtManager,
		respondError: respondError,
		now:          time.Now,
	}
}

func (s *service) issueTokens(userID string) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("could not generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("could not generate refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (s *service) refreshExpiry() time.Time {
	return s.now().Add(s.jwtManager.RefreshTTL())
}

func (s *service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	newUser, err := s.userService.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}

	accessToken, refreshToken, err := s.issueTokens(newUser.ID)
	if err != nil {
		return nil, err
	}
	if err := s.userService.StoreRefreshToken(ctx, newUser.ID, hashRefreshToken(refreshToken), s.refreshExpiry()); err != nil {
		return nil, err
	}
	return &Session{User: newUser, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	existingUser, err := s.userService.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	accessToken, refreshToken, err := s.issueTokens(existingUser.ID)
	if err != nil {
		return nil, err
	}
	if err := s.userService.RecordLogin(ctx, existingUser.ID, hashRefreshToken(refreshToken), s.refreshExpiry()); err != nil {
		return nil, err
	}
	now := s.now()
	existingUser.LastLogin = &now
	return &Session{User: existingUser, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token stops working once the rotation is stored.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	userID, err := s.jwtManager.Verify(refreshToken, RefreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !existingUser.IsActive || !refreshTokenMatches(refreshToken, existingUser.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	if exp := existingUser.RefreshTokenExpiresAt; exp != nil && s.now().After(*exp) {
		return nil, ErrInvalidRefreshToken
	}

	accessToken, newRefreshToken, err := s.issueTokens(existingUser.ID)
	if err != nil {
		return nil, err
	}
	err = s.userService.RotateRefreshToken(ctx, existingUser.ID, existingUser.RefreshTokenHash, hashRefreshToken(newRefreshToken), s.refreshExpiry())
	if err != nil {
		if errors.Is(err, user.ErrRefreshTokenMismatch) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &Session{User: existingUser, AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// Logout forgets the stored refresh token. An anonymous caller or an
// already deleted user is not an error.
func (s *service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	err := s.userService.ClearRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return err
	}
	return nil
}

// ResolveUser maps an access token to an active user.
func (s *service) ResolveUser(ctx context.Context, accessToken string) (*user.User, error) {
	if accessToken == "" {
		return nil, ErrNotAuthenticated
	}
	userID, err := s.jwtManager.Verify(accessToken, AccessToken)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserNoLongerExists
		}
		return nil, err
	}
	if !existingUser.IsActive {
		return nil, ErrUserDeactivated
	}
	return existingUser, nil
}
