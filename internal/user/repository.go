package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Seeder writes per-user starter data inside the registration transaction.
type Seeder interface {
	SeedDefaults(ctx context.Context, tx *sql.Tx, userID string) error
}

type Repository interface {
	createUser(ctx context.Context, user *User, seeder Seeder) error
	emailExists(ctx context.Context, email string) (bool, error)
	getUserByEmail(ctx context.Context, email string) (*User, error)
	getUserByID(ctx context.Context, id string) (*User, error)
	recordLogin(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error
	setRefreshToken(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error
	rotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error
	clearRefreshToken(ctx context.Context, userID string) error
	linkGitHub(ctx context.Context, userID, accessToken string, profile GitHubProfile) error
	unlinkGitHub(ctx context.Context, userID string) error
	purgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

const selectUser = `
	SELECT id, name, email, password_hash, github_access_token, github_profile,
	       refresh_token_hash, refresh_token_expires_at, last_login, is_active, created_at, updated_at
	FROM users
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user          User
		githubToken   sql.NullString
		githubProfile []byte
		refreshHash   sql.NullString
		refreshExp    sql.NullTime
		lastLogin     sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &githubToken, &githubProfile,
		&refreshHash, &refreshExp, &lastLogin, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not find user: %w", err)
	}

	user.GitHubAccessToken = githubToken.String
	user.RefreshTokenHash = refreshHash.String
	if refreshExp.Valid {
		user.RefreshTokenExpiresAt = &refreshExp.Time
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	if len(githubProfile) > 0 {
		var profile GitHubProfile
		if err := json.Unmarshal(githubProfile, &profile); err != nil {
			return nil, fmt.Errorf("could not decode github profile: %w", err)
		}
		user.GitHub = &profile
	}
	return &user, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func (r *userRepository) createUser(ctx context.Context, user *User, seeder Seeder) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("Error during registration rollback: %v", rbErr)
			}
		}
	}()

	query := `
		INSERT INTO users (name, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING id, is_active, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, user.Name, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("could not create user: %w", err)
	}

	if seeder != nil {
		if err = seeder.SeedDefaults(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("could not seed default categories: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit registration: %w", err)
	}
	user.Favorites = []Favorite{}
	return nil
}

func (r *userRepository) emailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("could not check email: %w", err)
	}
	return exists, nil
}

func (r *userRepository) getUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.loadUser(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *userRepository) getUserByID(ctx context.Context, id string) (*User, error) {
	return r.loadUser(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *userRepository) loadUser(ctx context.Context, query string, arg string) (*User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if user.Favorites, err = r.listFavorites(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) listFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	query := `
		SELECT repo_id, repo_name, repo_full_name, repo_url, description, language,
		       stargazers_count, forks_count, added_at
		FROM user_favorites
		WHERE user_id = $1
		ORDER BY added_at, repo_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load favorites: %w", err)
	}
	defer rows.Close()

	favorites := []Favorite{}
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.RepoID, &f.RepoName, &f.RepoFullName, &f.RepoURL, &f.Description,
			&f.Language, &f.StargazersCount, &f.ForksCount, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("could not scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

func (r *userRepository) recordLogin(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $2, refresh_token_expires_at = $3, last_login = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	return r.execForUser(ctx, query, userID, refreshHash, expiresAt)
}

func (r *userRepository) setRefreshToken(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $2, refresh_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execForUser(ctx, query, userID, refreshHash, expiresAt)
}

// rotateRefreshToken swaps the stored hash only if it still equals oldHash,
// so a rotated-out token cannot win a concurrent refresh.
func (r *userRepository) rotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $3, refresh_token_expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $2 AND is_active
	`
	err := r.execForUser(ctx, query, userID, oldHash, newHash, expiresAt)
	if errors.Is(err, ErrUserNotFound) {
		return ErrRefreshTokenMismatch
	}
	return err
}

func (r *userRepository) clearRefreshToken(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execForUser(ctx, query, userID)
}

func (r *userRepository) linkGitHub(ctx context.Context, userID, accessToken string, profile GitHubProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("could not encode github profile: %w", err)
	}
	query := `
		UPDATE users
		SET github_id = $2, github_access_token = $3, github_profile = $4, github_connected_at = $5, updated_at = NOW()
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query, userID, profile.ID, accessToken, profileJSON, profile.ConnectedAt)
	if err != nil {
		if isUniqueViolation(err, "users_github_id_key") {
			return ErrGitHubAlreadyLinked
		}
		return fmt.Errorf("could not link github account: %w", err)
	}
	return nil
}

// unlinkGitHub drops the linked account and the favorites that depend on it.
func (r *userRepository) unlinkGitHub(ctx context.Context, userID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin unlink: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_favorites WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("could not clear favorites: %w", err)
	}
	query := `
		UPDATE users
		SET github_id = NULL, github_access_token = NULL, github_profile = NULL, github_connected_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	if _, err = tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("could not unlink github account: %w", err)
	}
	return tx.Commit()
}

func (r *userRepository) purgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL
		WHERE refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("could not purge refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *userRepository) execForUser(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not update user: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
