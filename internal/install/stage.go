// SPDX-License-Identifier: MPL-2.0

package install

// Stage identifies one step of the install pipeline. Stages advance
// strictly sequentially on success; any failure moves directly to the
// absorbing StageFailed.
type Stage int

const (
	// StageResolving turns the requested version string into a concrete release.
	StageResolving Stage = iota
	// StageFetching downloads the SDK and toolchain archives into the scratch area.
	StageFetching
	// StageExtracting unpacks the archives into the scratch tree.
	StageExtracting
	// StagePatching rewrites bootstrap files for headless operation.
	StagePatching
	// StageToolchainSetup lays out the toolchain and repairs file modes.
	StageToolchainSetup
	// StageToolchainCompile runs the toolchain's native build step.
	StageToolchainCompile
	// StageCommitting publishes the scratch tree into the registry.
	StageCommitting
	// StageDone is the terminal success state.
	StageDone
	// StageFailed is the absorbing failure state, reachable from any
	// non-terminal stage.
	StageFailed
)

// String returns the stage name for logs and progress reporting.
func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "resolving"
	case StageFetching:
		return "fetching"
	case StageExtracting:
		return "extracting"
	case StagePatching:
		return "patching"
	case StageToolchainSetup:
		return "toolchain setup"
	case StageToolchainCompile:
		return "toolchain compile"
	case StageCommitting:
		return "committing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether s is an end state.
func (s Stage) Terminal() bool { return s == StageDone || s == StageFailed }

// Next returns the stage following s on success. The transition chain is
// branch-free; terminal stages return themselves.
func (s Stage) Next() Stage {
	if s.Terminal() {
		return s
	}
	return s + 1
}

// Fail returns the failure transition from s. Terminal stages absorb.
func (s Stage) Fail() Stage {
	if s == StageDone {
		return StageDone
	}
	return StageFailed
}
