// SPDX-License-Identifier: MPL-2.0

// Package registry owns the on-disk set of installed runtime versions.
//
// The registry root holds one directory per installed version, named by
// the version's canonical string. A directory counts as installed only
// when it carries the completion marker written during commit; directories
// without it are orphans from interrupted installs and are never reported
// as installed. No other component creates or deletes version directories.
package registry

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"renutil/internal/version"
)

// MarkerFileName is the completion marker written as the final step of a
// successful install, before the scratch tree is renamed into place.
const MarkerFileName = ".renutil-installed"

var (
	// ErrNotInstalled indicates the targeted version is absent from the registry.
	ErrNotInstalled = errors.New("version not installed")

	// ErrAlreadyInstalled indicates a commit found the target version
	// already present, either fully installed or mid-commit by a
	// concurrent install of the same version.
	ErrAlreadyInstalled = errors.New("version already installed")
)

type (
	// Install is one installed version and its directory.
	Install struct {
		Version version.Version
		Path    string
	}

	// Registry manages version directories under a single root. The root
	// is an explicit constructor argument; there is no ambient default.
	Registry struct {
		root   string
		logger *log.Logger
	}

	// Option configures a Registry during construction.
	Option func(*Registry)

	// commitLock guards a version's final directory path during the
	// scratch-to-final rename. The lock file is created O_EXCL, so of two
	// concurrent commits for the same version exactly one proceeds.
	commitLock struct {
		path string
	}
)

// RAPTPath returns the companion toolchain directory of an install.
func (i Install) RAPTPath() string { return filepath.Join(i.Path, "rapt") }

// LauncherPath returns the bundled launcher project directory.
func (i Install) LauncherPath() string { return filepath.Join(i.Path, "launcher") }

// WithLogger attaches a logger for scan diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New creates a Registry rooted at root, creating the directory when absent.
func New(root string, opts ...Option) (*Registry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving registry root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry root %s: %w", abs, err)
	}

	r := &Registry{root: abs}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r, nil
}

// Root returns the absolute registry root directory.
func (r *Registry) Root() string { return r.root }

// Scan walks the registry root and partitions version-named directories
// into completed installs (newest first) and orphans: directories whose
// name parses as a version but which lack the completion marker.
func (r *Registry) Scan() (installs []Install, orphans []string, err error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning registry root %s: %w", r.root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, parseErr := version.Parse(entry.Name())
		if parseErr != nil {
			// Scratch areas, lock files, and stray entries are not
			// version directories; they are simply not ours to judge.
			continue
		}

		dir := filepath.Join(r.root, entry.Name())
		if _, statErr := os.Stat(filepath.Join(dir, MarkerFileName)); statErr != nil {
			r.logger.Warn("ignoring incomplete install", "version", v, "path", dir)
			orphans = append(orphans, dir)
			continue
		}
		installs = append(installs, Install{Version: v, Path: dir})
	}

	slices.SortStableFunc(installs, func(a, b Install) int {
		return version.Compare(b.Version, a.Version)
	})
	return installs, orphans, nil
}

// List returns the installed versions, newest first.
func (r *Registry) List() ([]Install, error) {
	installs, _, err := r.Scan()
	return installs, err
}

// Installed reports whether v is fully installed.
func (r *Registry) Installed(v version.Version) bool {
	_, err := r.PathFor(v)
	return err == nil
}

// PathFor resolves the install directory for v. Returns ErrNotInstalled
// when the directory is absent or lacks the completion marker.
func (r *Registry) PathFor(v version.Version) (Install, error) {
	dir := filepath.Join(r.root, v.String())
	if _, err := os.Stat(filepath.Join(dir, MarkerFileName)); err != nil {
		return Install{}, fmt.Errorf("%w: %s", ErrNotInstalled, v)
	}
	return Install{Version: v, Path: dir}, nil
}

// Uninstall removes v's directory wholesale. Other versions' directories
// are never touched. Returns ErrNotInstalled for unknown versions, with
// no side effects.
func (r *Registry) Uninstall(v version.Version) error {
	inst, err := r.PathFor(v)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(inst.Path); err != nil {
		return fmt.Errorf("removing %s: %w", inst.Path, err)
	}
	r.logger.Debug("uninstalled", "version", v, "path", inst.Path)
	return nil
}

// Cleanup deletes transient build byproducts of an installed version,
// toolchain intermediates and build logs, leaving the runtime launchable.
func (r *Registry) Cleanup(v version.Version) error {
	inst, err := r.PathFor(v)
	if err != nil {
		return err
	}

	transient := []string{
		filepath.Join(inst.Path, "tmp"),
		filepath.Join(inst.RAPTPath(), "assets"),
		filepath.Join(inst.RAPTPath(), "bin"),
		filepath.Join(inst.RAPTPath(), "build.log"),
		filepath.Join(inst.RAPTPath(), "project", "app"),
		filepath.Join(inst.RAPTPath(), "project", "build"),
	}
	for _, path := range transient {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("cleaning %s: %w", path, err)
		}
	}
	r.logger.Debug("cleaned transient build artifacts", "version", v)
	return nil
}

// Commit atomically publishes a completed scratch tree as version v. It
// writes the completion marker into the scratch tree, then renames it to
// the final version-named directory under an exclusive per-version lock.
// Only after Commit does the version become visible to List and PathFor.
func (r *Registry) Commit(scratch string, v version.Version) error {
	final := filepath.Join(r.root, v.String())

	lock, err := acquireCommitLock(final)
	if err != nil {
		return err
	}
	defer lock.release()

	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, v)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", final, err)
	}

	marker := fmt.Sprintf("%s\n%s\n", v, time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(scratch, MarkerFileName), []byte(marker), 0o644); err != nil {
		return fmt.Errorf("writing completion marker: %w", err)
	}

	if err := os.Rename(scratch, final); err != nil {
		// Leave no half-published state behind: the marker inside the
		// scratch tree must not outlive a failed rename.
		_ = os.Remove(filepath.Join(scratch, MarkerFileName))
		return fmt.Errorf("committing %s: %w", final, err)
	}
	r.logger.Debug("committed install", "version", v, "path", final)
	return nil
}

// acquireCommitLock creates the per-version lock file next to the final
// directory path. A concurrent commit for the same version finds the file
// already present and reports ErrAlreadyInstalled.
func acquireCommitLock(finalPath string) (*commitLock, error) {
	lockPath := filepath.Join(filepath.Dir(finalPath), "."+filepath.Base(finalPath)+".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: commit in progress for %s", ErrAlreadyInstalled, filepath.Base(finalPath))
		}
		return nil, fmt.Errorf("acquiring commit lock %s: %w", lockPath, err)
	}
	_ = f.Close()
	return &commitLock{path: lockPath}, nil
}

// release removes the lock file. Safe to call once the rename finished or
// failed; the zero-byte file never survives the owning commit.
func (l *commitLock) release() {
	if l == nil {
		return
	}
	_ = os.Remove(l.path)
}
