// Package gitrepo provides read access to the release history of the
// repository holding the migration sources.
package gitrepo

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ReadFileAt when the path does not exist at the revision.
var ErrNotFound = errors.New("path does not exist at revision")

// Repository is the git collaborator used during migration generation.
type Repository interface {
	// ListTags returns every tag in the repository.
	ListTags(ctx context.Context) ([]string, error)

	// ReadFileAt returns the content of a repository-relative, slash-separated
	// path at the given revision. Returns ErrNotFound if the path did not
	// exist at that revision.
	ReadFileAt(ctx context.Context, path, revision string) (string, error)
}
