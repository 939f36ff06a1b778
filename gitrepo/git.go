package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Git reads history by invoking the git binary in a work tree.
type Git struct {
	// Dir is the repository root every command runs in.
	Dir string

	// Binary is the git executable (default: "git").
	Binary string
}

var _ Repository = (*Git)(nil)

// NewGit creates a Git repository rooted at dir.
func NewGit(dir string) *Git {
	return &Git{Dir: dir, Binary: "git"}
}

// ListTags implements Repository.
func (g *Git) ListTags(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "tag", "--list")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if tag := strings.TrimSpace(line); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// ReadFileAt implements Repository.
func (g *Git) ReadFileAt(ctx context.Context, path, revision string) (string, error) {
	out, err := g.run(ctx, "show", revision+":"+path)
	if err != nil {
		if isMissingPath(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s at %s: %w", path, revision, err)
	}
	return out, nil
}

// FindRoot returns the top level of the work tree containing dir.
func FindRoot(ctx context.Context, dir string) (string, error) {
	g := NewGit(dir)
	out, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to find git repository for %s: %w", dir, err)
	}
	return strings.TrimSpace(out), nil
}

// CommandError carries the stderr of a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, msg)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// git show prints one of these when the revision is valid but the path is not.
var missingPathMarkers = []string{
	"does not exist in",
	"exists on disk, but not in",
}

func isMissingPath(err error) bool {
	ce, ok := err.(*CommandError)
	if !ok {
		return false
	}
	for _, marker := range missingPathMarkers {
		if strings.Contains(ce.Stderr, marker) {
			return true
		}
	}
	return false
}
