// Package archive commits written reports and documents into a git
// repository, so every published score can be traced to the exact files
// and scoring version that produced it.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
)

// ErrNothingToCommit is returned when none of the given files changed.
var ErrNothingToCommit = errors.New("archive: nothing to commit")

// Options configure an Archive.
type Options struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
	Logger      *logger.Logger
	// Clock stamps commits. Defaults to time.Now.
	Clock func() time.Time
}

// Archive is a git working tree that receives audit output.
type Archive struct {
	dir    string
	repo   *git.Repository
	opts   Options
	logger *logger.Logger
}

// Open opens the repository at opts.Dir, initializing it when absent.
func Open(opts Options) (*Archive, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("archive directory is required")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve archive directory: %w", err)
	}

	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
		if err == nil {
			opts.Logger.WithFields(map[string]any{"dir": dir}).Info("archive repository initialized")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", dir, err)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Archive{dir: dir, repo: repo, opts: opts, logger: opts.Logger}, nil
}

// Dir returns the absolute working tree path.
func (a *Archive) Dir() string {
	return a.dir
}

// Commit stages paths, which must lie inside the working tree, and commits
// them with message. It returns the commit hash.
func (a *Archive) Commit(ctx context.Context, message string, paths []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wt, err := a.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("archive worktree: %w", err)
	}

	for _, path := range paths {
		rel, err := a.relative(path)
		if err != nil {
			return "", err
		}
		if _, err := wt.Add(rel); err != nil {
			return "", fmt.Errorf("stage %s: %w", rel, err)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("archive status: %w", err)
	}
	staged := 0
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged++
		}
	}
	if staged == 0 {
		return "", ErrNothingToCommit
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  a.opts.AuthorName,
			Email: a.opts.AuthorEmail,
			When:  a.opts.Clock(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit archive: %w", err)
	}

	a.logger.WithFields(map[string]any{"commit": hash.String()[:7], "files": staged}).Info("archived audit output")
	return hash.String(), nil
}

func (a *Archive) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(a.dir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%s is outside the archive %s", path, a.dir)
	}
	return filepath.ToSlash(rel), nil
}
