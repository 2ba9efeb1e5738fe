// Package gitops records reconciliation outputs in git as an audit trail.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNothingToCommit is returned by CommitPaths when the staged paths are unchanged.
var ErrNothingToCommit = errors.New("nothing to commit")

// Author identifies who a commit is attributed to. It is used as both author
// and committer so commits work without a global git identity.
type Author struct {
	Name  string
	Email string
}

func (a Author) env() []string {
	return append(os.Environ(),
		"GIT_AUTHOR_NAME="+a.Name,
		"GIT_AUTHOR_EMAIL="+a.Email,
		"GIT_COMMITTER_NAME="+a.Name,
		"GIT_COMMITTER_EMAIL="+a.Email,
	)
}

func git(dir string, env []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Init initializes a new git repository at dir.
func Init(dir string) error {
	_, err := git(dir, nil, "init", "--quiet")
	return err
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	out, err := git(dir, nil, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CommitPaths stages paths (relative to dir) and commits them. Returns the
// short commit hash, or ErrNothingToCommit when nothing changed.
func CommitPaths(dir, message string, author Author, paths ...string) (string, error) {
	env := author.env()

	if _, err := git(dir, env, append([]string{"add", "-A", "--"}, paths...)...); err != nil {
		return "", err
	}

	// diff --cached --quiet exits 1 when something is staged.
	diff := exec.Command("git", "diff", "--cached", "--quiet")
	diff.Dir = dir
	err := diff.Run()
	if err == nil {
		return "", ErrNothingToCommit
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return "", fmt.Errorf("git diff: %w", err)
	}

	if _, err := git(dir, env, "commit", "--quiet", "-m", message); err != nil {
		return "", err
	}
	return git(dir, env, "rev-parse", "--short", "HEAD")
}
