// Package scratch manages per-run scratch directories. Every pipeline run
// gets its own directory named by a unique run token, so concurrent runs
// never collide on filenames, and removing the directory at the end of the
// run is the catch-all guarantee that no artifact leaks.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reelscribe/internal/core/domain"
)

// Workspace creates run-scoped scratch directories under a base directory.
type Workspace struct {
	BaseDir string
}

// NewWorkspace returns a Workspace rooted at baseDir.
func NewWorkspace(baseDir string) *Workspace {
	return &Workspace{BaseDir: baseDir}
}

// OpenRun creates a fresh scratch directory for one pipeline run.
func (w *Workspace) OpenRun() (*Run, error) {
	token := fmt.Sprintf("%d-%s", time.Now().UTC().Unix(), uuid.NewString()[:8])
	dir := filepath.Join(w.BaseDir, "reelscribe-"+token)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory %s: %w", dir, err)
	}
	return &Run{token: token, dir: dir}, nil
}

// Run is one pipeline run's scratch space.
type Run struct {
	token string
	dir   string
}

// Token returns the unique run token.
func (r *Run) Token() string { return r.token }

// Dir returns the run's scratch directory.
func (r *Run) Dir() string { return r.dir }

// Release removes a single artifact file. A file that is already gone is
// not an error; release must be safe to call on every exit path.
func (r *Run) Release(artifact domain.MediaArtifact) error {
	if artifact.Path == "" {
		return nil
	}
	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release %s artifact %s: %w", artifact.Kind, artifact.Path, err)
	}
	return nil
}

// Close removes the whole run directory, including anything a stage left
// behind.
func (r *Run) Close() error {
	if err := os.RemoveAll(r.dir); err != nil {
		return fmt.Errorf("failed to remove scratch directory %s: %w", r.dir, err)
	}
	return nil
}
