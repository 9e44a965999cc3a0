// SPDX-License-Identifier: MPL-2.0

package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"renutil/internal/execx"
	"renutil/internal/platform"
)

// gradleJVMArgs replaces the toolchain's default Gradle heap limit, which
// is too small for release builds of non-trivial projects.
const gradleJVMArgs = "org.gradle.jvmargs=-Xmx8g"

// ErrToolchainBuild indicates the toolchain's native build step failed.
// This commonly stems from missing system development headers rather than
// anything this tool controls, so the build output is carried verbatim.
var ErrToolchainBuild = errors.New("toolchain build failed")

// ToolchainBuildError carries the native build's exit code and combined
// output. It wraps ErrToolchainBuild for errors.Is classification.
type ToolchainBuildError struct {
	ExitCode int
	Output   string
}

// Error surfaces the underlying tool's diagnostics unmodified.
func (e *ToolchainBuildError) Error() string {
	return fmt.Sprintf("toolchain build exited with code %d:\n%s", e.ExitCode, e.Output)
}

// Unwrap returns ErrToolchainBuild so callers can use errors.Is.
func (e *ToolchainBuildError) Unwrap() error { return ErrToolchainBuild }

// setupToolchain lays out the extracted tree for the toolchain build:
// restores the executable bits that zip extraction dropped and raises the
// Gradle heap limit in the toolchain's project configuration.
func setupToolchain(root string) error {
	arch := platform.Arch()
	libDir := filepath.Join(root, "lib", arch)

	// Zip archives from the release server do not reliably carry POSIX
	// modes, so the bundled tools arrive non-executable.
	executables := []string{
		filepath.Join(libDir, platform.PythonName()),
		filepath.Join(libDir, "pythonw"),
		filepath.Join(libDir, "renpy"),
		filepath.Join(libDir, "zsync"),
		filepath.Join(libDir, "zsyncmake"),
		filepath.Join(root, "rapt", "project", "gradlew"),
	}
	for _, path := range executables {
		if err := os.Chmod(path, 0o755); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Not every release ships every tool (zsync is absent on
				// Windows builds, pythonw on Linux ones).
				continue
			}
			return fmt.Errorf("marking %s executable: %w", path, err)
		}
	}

	return raiseGradleHeap(filepath.Join(root, "rapt", "project", "gradle.properties"))
}

// raiseGradleHeap rewrites the org.gradle.jvmargs line in place, leaving
// every other property untouched.
func raiseGradleHeap(propsPath string) error {
	data, err := os.ReadFile(propsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Older toolchains predate the Gradle project layout.
			return nil
		}
		return fmt.Errorf("reading %s: %w", propsPath, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "org.gradle.jvmargs") {
			lines[i] = gradleJVMArgs + "\n"
		}
	}
	if err := os.WriteFile(propsPath, []byte(strings.Join(lines, "")), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", propsPath, err)
	}
	return nil
}

// compileToolchain invokes the toolchain's own native build step: the
// bundled Python running "android.py installsdk" inside the toolchain
// directory. Output is teed to the build log in the tree and kept in
// memory so a failure surfaces the tool's diagnostics verbatim.
func compileToolchain(ctx context.Context, runner execx.Runner, root string) error {
	raptDir := filepath.Join(root, "rapt")
	pythonPath := filepath.Join(root, "lib", platform.Arch(), platform.PythonName())

	logPath := filepath.Join(raptDir, "build.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening build log %s: %w", logPath, err)
	}
	defer func() { _ = logFile.Close() }()

	var output bytes.Buffer
	sink := io.MultiWriter(logFile, &output)

	code, err := runner.Run(ctx, execx.Spec{
		Path: pythonPath,
		Args: []string{"-O", "android.py", "installsdk"},
		Dir:  raptDir,
		// The toolchain's license prompt is already answered by the
		// headless patches; this keeps it from re-asking via the env path.
		Env:    []string{"RAPT_NO_TERMS=no"},
		Stdout: sink,
		Stderr: sink,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrToolchainBuild, err)
	}
	if code != 0 {
		return &ToolchainBuildError{ExitCode: code, Output: output.String()}
	}
	return nil
}
