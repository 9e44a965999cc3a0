// SPDX-License-Identifier: MPL-2.0

// Package launch builds and executes the command line that starts an
// installed runtime version against a project. The runtime is an opaque
// external process: streams are forwarded and the exit status propagates
// to the caller unmodified.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"renutil/internal/execx"
	"renutil/internal/platform"
	"renutil/internal/registry"
	"renutil/internal/version"
)

// ErrRuntimeLayout indicates an installed version's directory does not
// contain the runtime files where the SDK layout puts them.
var ErrRuntimeLayout = errors.New("runtime files not found in install")

type (
	// Request describes one launch invocation.
	Request struct {
		Version version.Version
		// ProjectPath is the project directory handed to the runtime.
		ProjectPath string
		// Direct bypasses the GUI launcher project and hands ProjectPath
		// and Args straight to the runtime's own argument parser.
		Direct bool
		// Args are passed through to the child unmodified.
		Args []string

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Launcher resolves installed versions and starts them.
	Launcher struct {
		registry *registry.Registry
		runner   execx.Runner
		logger   *log.Logger
	}

	// Option configures a Launcher during construction.
	Option func(*Launcher)
)

// WithRunner overrides the external process runner, primarily for tests.
func WithRunner(r execx.Runner) Option {
	return func(l *Launcher) {
		l.runner = r
	}
}

// WithLogger attaches a logger for launch diagnostics.
func WithLogger(lg *log.Logger) Option {
	return func(l *Launcher) {
		l.logger = lg
	}
}

// New creates a Launcher over the given registry.
func New(reg *registry.Registry, opts ...Option) *Launcher {
	l := &Launcher{registry: reg}
	for _, opt := range opts {
		opt(l)
	}
	if l.runner == nil {
		l.runner = execx.NewRunner()
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	return l
}

// Launch starts the requested version and returns the child's exit code.
// Returns registry.ErrNotInstalled when the version is absent.
func (l *Launcher) Launch(ctx context.Context, req Request) (int, error) {
	inst, err := l.registry.PathFor(req.Version)
	if err != nil {
		return 1, err
	}

	exe, entry, libDir, err := locateRuntime(inst.Path)
	if err != nil {
		return 1, err
	}

	args := []string{"-EO", entry}
	if !req.Direct {
		args = append(args, inst.LauncherPath())
	}
	if req.ProjectPath != "" {
		args = append(args, req.ProjectPath)
	}
	args = append(args, req.Args...)

	// Headless invocations have no audio device; the dummy driver keeps
	// the runtime from failing at startup. Scoped to the child only.
	env := []string{"SDL_AUDIODRIVER=dummy"}
	if ld := os.Getenv("LD_LIBRARY_PATH"); ld != "" {
		env = append(env, "LD_LIBRARY_PATH="+libDir+":"+ld)
	}

	l.logger.Debug("launching runtime", "version", req.Version, "exe", exe, "args", args)

	return l.runner.Run(ctx, execx.Spec{
		Path:   exe,
		Args:   args,
		Env:    env,
		Stdin:  req.Stdin,
		Stdout: req.Stdout,
		Stderr: req.Stderr,
	})
}

// locateRuntime finds the platform executable, the runtime's Python entry
// point, and the native library directory inside an install. macOS app
// bundles nest the tree, so a couple of alternate roots are probed.
func locateRuntime(root string) (exe, entry, libDir string, err error) {
	arch := platform.Arch()
	candidates := []string{
		root,
		filepath.Join(root, "..", "Resources", "autorun"),
		filepath.Join(root, "..", "..", ".."),
	}

	for _, candidate := range candidates {
		dir := filepath.Join(candidate, "lib", arch)
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			libDir = dir
			break
		}
	}
	if libDir == "" {
		return "", "", "", fmt.Errorf("%w: no lib/%s under %s", ErrRuntimeLayout, arch, root)
	}

	for _, candidate := range candidates {
		p := filepath.Join(candidate, "renpy.py")
		if _, statErr := os.Stat(p); statErr == nil {
			entry = p
			break
		}
	}
	if entry == "" {
		return "", "", "", fmt.Errorf("%w: no renpy.py under %s", ErrRuntimeLayout, root)
	}

	exe = filepath.Join(libDir, "renpy"+platform.ExeSuffix())
	return exe, entry, libDir, nil
}
