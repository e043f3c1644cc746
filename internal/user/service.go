package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrUserNotFound         = apperror.NotFound("User not found")
	ErrEmailAlreadyExists   = apperror.Conflict("Email already registered")
	ErrInvalidEmail         = apperror.Validation("Please provide a valid email")
	ErrInvalidCredentials   = apperror.Unauthorized("Invalid email or password")
	ErrAccountDeactivated   = apperror.Unauthorized("Account is deactivated")
	ErrGitHubAlreadyLinked  = apperror.Conflict("This GitHub account is already connected to another user")
	ErrGitHubNotConnected   = apperror.Validation("GitHub account not connected")
	ErrRefreshTokenMismatch = apperror.Unauthorized("Invalid refresh token")
)

type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	RecordLogin(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error
	StoreRefreshToken(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID string) error
	LinkGitHub(ctx context.Context, userID, accessToken string, profile GitHubProfile) error
	UnlinkGitHub(ctx context.Context, userID string) error
	PurgeExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type service struct {
	repo   Repository
	seeder Seeder
	now    func() time.Time
}

// NewUserService wires the store with the seeder run on registration.
func NewUserService(repo Repository, seeder Seeder) Service {
	return &service{
		repo:   repo,
		seeder: seeder,
		now:    time.Now,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hashed), err
}

func doPasswordsMatch(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, ErrInvalidEmail
	}

	exists, err := s.repo.emailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := &User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
	}
	// A concurrent registration may still win the race; createUser maps the
	// unique violation to ErrEmailAlreadyExists.
	if err := s.repo.createUser(ctx, user, s.seeder); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	existingUser, err := s.repo.getUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !doPasswordsMatch(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !existingUser.IsActive {
		return nil, ErrAccountDeactivated
	}
	return existingUser, nil
}

func (s *service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	return s.repo.getUserByID(ctx, userID)
}

func (s *service) RecordLogin(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error {
	return s.repo.recordLogin(ctx, userID, refreshHash, expiresAt)
}

func (s *service) StoreRefreshToken(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error {
	return s.repo.setRefreshToken(ctx, userID, refreshHash, expiresAt)
}

func (s *service) RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	return s.repo.rotateRefreshToken(ctx, userID, oldHash, newHash, expiresAt)
}

func (s *service) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.repo.clearRefreshToken(ctx, userID)
}

func (s *service) LinkGitHub(ctx context.Context, userID, accessToken string, profile GitHubProfile) error {
	if profile.ConnectedAt.IsZero() {
		profile.ConnectedAt = s.now().UTC()
	}
	return s.repo.linkGitHub(ctx, userID, accessToken, profile)
}

func (s *service) UnlinkGitHub(ctx context.Context, userID string) error {
	existingUser, err := s.repo.getUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if existingUser.GitHub == nil {
		return ErrGitHubNotConnected
	}
	return s.repo.unlinkGitHub(ctx, userID)
}

func (s *service) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return s.repo.purgeExpiredRefreshTokens(ctx, s.now())
}
