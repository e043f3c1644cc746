package favorite

import (
	"github.com/sebuszqo/FinanceHub/internal/github"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

// Favorite is the snapshot also embedded in the user profile.
type Favorite = user.Favorite

func fromRepository(repo *github.Repository) *Favorite {
	return &Favorite{
		RepoID:          repo.ID,
		RepoName:        repo.Name,
		RepoFullName:    repo.FullName,
		RepoURL:         repo.HTMLURL,
		Description:     repo.Description,
		Language:        repo.Language,
		StargazersCount: repo.StargazersCount,
		ForksCount:      repo.ForksCount,
	}
}
