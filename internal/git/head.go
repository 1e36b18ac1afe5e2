// Package git reads the source revision a build runs against.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository is returned when dir is not inside a git working tree.
var ErrNotRepository = errors.New("not a git repository")

const shortLen = 7

// Revision identifies the checked-out commit.
type Revision struct {
	Commit string
	Branch string // empty for a detached HEAD
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Commit) > shortLen {
		return r.Commit[:shortLen]
	}
	return r.Commit
}

// String renders branch@short, or just the short hash when detached.
func (r Revision) String() string {
	if r.Commit == "" {
		return ""
	}
	if r.Branch == "" {
		return r.Short()
	}
	return r.Branch + "@" + r.Short()
}

// HeadRevision resolves HEAD of the repository containing dir.
func HeadRevision(dir string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Revision{}, fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return Revision{}, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Revision{}, fmt.Errorf("repository has no commits: %w", err)
		}
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	rev := Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}
