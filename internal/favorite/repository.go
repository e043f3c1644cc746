package favorite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	list(ctx context.Context, userID string) ([]Favorite, error)
	exists(ctx context.Context, userID string, repoID int64) (bool, error)
	ids(ctx context.Context, userID string) (map[int64]bool, error)
	// insert reports false when the repository is already in the user's list.
	insert(ctx context.Context, userID string, favorite *Favorite) (bool, error)
	remove(ctx context.Context, userID string, repoID int64) (bool, error)
}

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) Repository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) list(ctx context.Context, userID string) ([]Favorite, error) {
	query := `
		SELECT repo_id, repo_name, repo_full_name, repo_url, description, language,
		       stargazers_count, forks_count, added_at
		FROM user_favorites
		WHERE user_id = $1
		ORDER BY added_at, repo_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not list favorites: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not list favorites: %w", err)
	}
	return favorites, nil
}

func (r *favoriteRepository) exists(ctx context.Context, userID string, repoID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_favorites WHERE user_id = $1 AND repo_id = $2)`,
		userID, repoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("could not check favorite: %w", err)
	}
	return exists, nil
}

func (r *favoriteRepository) ids(ctx context.Context, userID string) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT repo_id FROM user_favorites WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load favorite ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("could not scan favorite id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *favoriteRepository) insert(ctx context.Context, userID string, f *Favorite) (bool, error) {
	query := `
		INSERT INTO user_favorites (user_id, repo_id, repo_name, repo_full_name, repo_url, description,
		                            language, stargazers_count, forks_count, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id, repo_id) DO NOTHING
		RETURNING added_at
	`
	err := r.db.QueryRowContext(ctx, query, userID, f.RepoID, f.RepoName, f.RepoFullName, f.RepoURL,
		f.Description, f.Language, f.StargazersCount, f.ForksCount).Scan(&f.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not add favorite: %w", err)
	}
	return true, nil
}

func (r *favoriteRepository) remove(ctx context.Context, userID string, repoID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_favorites WHERE user_id = $1 AND repo_id = $2`, userID, repoID)
	if err != nil {
		return false, fmt.Errorf("could not remove favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not remove favorite: %w", err)
	}
	return affected > 0, nil
}
