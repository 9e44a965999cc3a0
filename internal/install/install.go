// SPDX-License-Identifier: MPL-2.0

// Package install orchestrates the version install pipeline: resolve,
// fetch, extract, patch for headless operation, set up and compile the
// companion toolchain, and commit to the registry. The pipeline is
// stateless between runs; the registry is the only durable record, and a
// version becomes visible there only after every prior stage succeeded.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"renutil/internal/execx"
	"renutil/internal/fetch"
	"renutil/internal/index"
	"renutil/internal/platform"
	"renutil/internal/registry"
	"renutil/internal/version"
)

type (
	// Reporter observes pipeline progress. Implementations render it
	// however they like; the pipeline works with the no-op default.
	Reporter interface {
		// Stage is called when the pipeline enters a stage.
		Stage(v version.Version, s Stage)
		// Progress relays download progress for a named artifact.
		// total is -1 when unknown.
		Progress(artifact string, transferred, total int64)
	}

	// Request describes one install invocation.
	Request struct {
		// Version is a concrete version string or the symbolic "latest".
		Version string
		// IncludePre lets "latest" resolve to nightlies and pre-releases.
		IncludePre bool
		// Force reinstalls an already-installed version, uninstalling it first.
		Force bool
	}

	// Result reports the outcome of a successful Install call.
	Result struct {
		Version version.Version
		Path    string
		// AlreadyInstalled is set when the version was present and Force
		// was not: nothing was downloaded or changed.
		AlreadyInstalled bool
	}

	// Installer wires the pipeline's collaborators. Construct with New.
	Installer struct {
		index    *index.Client
		fetcher  *fetch.Fetcher
		registry *registry.Registry
		runner   execx.Runner
		reporter Reporter
		logger   *log.Logger
	}

	// Option configures an Installer during construction.
	Option func(*Installer)

	nopReporter struct{}
)

func (nopReporter) Stage(version.Version, Stage)  {}
func (nopReporter) Progress(string, int64, int64) {}

// NopReporter discards all pipeline progress.
func NopReporter() Reporter { return nopReporter{} }

// WithRunner overrides the external process runner, primarily for tests.
func WithRunner(r execx.Runner) Option {
	return func(ins *Installer) {
		ins.runner = r
	}
}

// WithReporter attaches a progress observer.
func WithReporter(r Reporter) Option {
	return func(ins *Installer) {
		ins.reporter = r
	}
}

// WithLogger attaches a logger for pipeline diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(ins *Installer) {
		ins.logger = l
	}
}

// New creates an Installer over the given collaborators.
func New(idx *index.Client, fetcher *fetch.Fetcher, reg *registry.Registry, opts ...Option) *Installer {
	ins := &Installer{
		index:    idx,
		fetcher:  fetcher,
		registry: reg,
	}
	for _, opt := range opts {
		opt(ins)
	}
	if ins.runner == nil {
		ins.runner = execx.NewRunner()
	}
	if ins.reporter == nil {
		ins.reporter = nopReporter{}
	}
	if ins.logger == nil {
		ins.logger = log.New(io.Discard)
	}
	return ins
}

// Install runs the pipeline for one version. Re-installing an installed
// version is a no-op reported via Result.AlreadyInstalled unless
// req.Force is set. On any stage failure or cancellation the scratch area
// is removed and the registry never sees the version.
func (ins *Installer) Install(ctx context.Context, req Request) (Result, error) {
	ins.reporter.Stage(version.Version{}, StageResolving)

	rel, err := ins.index.Resolve(ctx, req.Version, req.IncludePre)
	if err != nil {
		ins.reporter.Stage(version.Version{}, StageFailed)
		return Result{}, err
	}
	v := rel.Version
	ins.logger.Debug("resolved release", "requested", req.Version, "version", v)

	if ins.registry.Installed(v) {
		if !req.Force {
			inst, pathErr := ins.registry.PathFor(v)
			if pathErr != nil {
				return Result{}, pathErr
			}
			return Result{Version: v, Path: inst.Path, AlreadyInstalled: true}, nil
		}
		ins.logger.Info("uninstalling before reinstall", "version", v)
		if err := ins.registry.Uninstall(v); err != nil {
			return Result{}, err
		}
	}

	// The scratch area lives under the registry root so the final rename
	// is an atomic same-filesystem move. It is removed unconditionally:
	// after a successful commit only downloaded archives remain in it.
	scratch, err := os.MkdirTemp(ins.registry.Root(), ".install-"+v.String()+"-")
	if err != nil {
		return Result{}, fmt.Errorf("creating scratch area: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	tree := filepath.Join(scratch, "tree")
	finalPath := filepath.Join(ins.registry.Root(), v.String())

	steps := map[Stage]func(context.Context) error{
		StageFetching: func(ctx context.Context) error {
			return ins.fetchArchives(ctx, rel, scratch)
		},
		StageExtracting: func(ctx context.Context) error {
			if err := extractArchive(ctx, archivePath(scratch, rel.SDKURL), tree); err != nil {
				return err
			}
			return extractArchive(ctx, archivePath(scratch, rel.RAPTURL), filepath.Join(tree, "rapt"))
		},
		StagePatching: func(context.Context) error {
			sitePackages := filepath.Join(finalPath, "lib", platform.Arch(), "lib", "python2.7")
			return applyPatches(tree, headlessPatches(sitePackages))
		},
		StageToolchainSetup: func(context.Context) error {
			return setupToolchain(tree)
		},
		StageToolchainCompile: func(ctx context.Context) error {
			return compileToolchain(ctx, ins.runner, tree)
		},
		StageCommitting: func(context.Context) error {
			return ins.registry.Commit(tree, v)
		},
	}

	for st := StageFetching; st != StageDone; st = st.Next() {
		ins.reporter.Stage(v, st)
		ins.logger.Debug("pipeline stage", "version", v, "stage", st)
		if err := steps[st](ctx); err != nil {
			ins.reporter.Stage(v, st.Fail())
			return Result{}, fmt.Errorf("installing %s (%s): %w", v, st, err)
		}
	}
	ins.reporter.Stage(v, StageDone)
	ins.logger.Info("installed", "version", v, "path", finalPath)

	return Result{Version: v, Path: finalPath}, nil
}

// fetchArchives downloads the SDK and toolchain archives concurrently
// into the scratch area, verifying each against the release's checksum
// side channel, or its advertised size when no checksums are published.
func (ins *Installer) fetchArchives(ctx context.Context, rel index.Release, scratch string) error {
	sums, err := ins.fetcher.Checksums(ctx, rel.ChecksumURL)
	if err != nil {
		if !errors.Is(err, fetch.ErrChecksumsUnavailable) {
			return err
		}
		ins.logger.Debug("no checksum side channel, using size verification", "version", rel.Version)
		sums = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, url := range []string{rel.SDKURL, rel.RAPTURL} {
		name := path.Base(url)
		dest := archivePath(scratch, url)
		g.Go(func() error {
			want := fetch.Integrity{SHA256: sums[name]}
			if want.SHA256 == "" {
				if size, sizeErr := ins.fetcher.RemoteSize(gctx, url); sizeErr == nil && size > 0 {
					want.Size = size
				} else {
					ins.logger.Warn("no checksum or advertised size, downloading unverified",
						"artifact", name)
				}
			}
			sink := func(transferred, total int64) {
				ins.reporter.Progress(name, transferred, total)
			}
			return ins.fetcher.Download(gctx, url, dest, want, sink)
		})
	}
	return g.Wait()
}

// archivePath is where a release URL's archive lands in the scratch area.
func archivePath(scratch, url string) string {
	return filepath.Join(scratch, path.Base(url))
}
