// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPatchTargetMissing indicates a headless patch marker was absent from
// its file. The install aborts rather than producing a falsely-headless
// tree that would later block on an interactive prompt.
var ErrPatchTargetMissing = errors.New("patch target missing")

type (
	// patchRule inserts text into a known file relative to a marker line.
	// The marker is matched as a substring of a single line, and the
	// insert lands SkipLines lines after it. Rules are deliberately a
	// data table rather than code: upstream releases that move a marker
	// get a new table entry, not a new branch.
	patchRule struct {
		// File is the target path relative to the install root.
		File string
		// Marker identifies the anchor line by substring match.
		Marker string
		// Insert is the text placed after the anchor; must end in a newline.
		Insert string
		// SkipLines shifts the insertion point past lines following the
		// anchor (0 inserts directly after the marker line).
		SkipLines int
	}

	// PatchError reports which marker was missing from which file. It
	// wraps ErrPatchTargetMissing for errors.Is classification.
	PatchError struct {
		File   string
		Marker string
	}
)

// Error names the file and marker so the upstream layout change is
// diagnosable from the message alone.
func (e *PatchError) Error() string {
	return fmt.Sprintf("patch target missing: no line containing %q in %s", e.Marker, e.File)
}

// Unwrap returns ErrPatchTargetMissing so callers can use errors.Is.
func (e *PatchError) Unwrap() error { return ErrPatchTargetMissing }

// headlessPatches is the marker table that makes an extracted tree run
// without a display or first-run prompts. sitePackages is the final
// (post-commit) path of the SDK's bundled Python site-packages, which the
// toolchain bootstrap must import from.
//
// The table currently covers every release shipping the RAPT toolchain;
// a future release that reshuffles these files gets its own entries here.
func headlessPatches(sitePackages string) []patchRule {
	return []patchRule{
		{
			// Point the toolchain bootstrap at the bundled site-packages
			// and disable certificate verification: the SDK's vendored
			// Python predates the system CA layout it would need.
			File:   filepath.Join("rapt", "android.py"),
			Marker: "import sys",
			Insert: "sys.path.insert(0, '" + sitePackages + "')\n\n" +
				"import ssl\n" +
				"ssl._create_default_https_context = ssl._create_unverified_context\n",
			SkipLines: 1,
		},
		{
			// Auto-accept every yes/no prompt the toolchain would raise.
			File:   filepath.Join("rapt", "buildlib", "rapt", "interface.py"),
			Marker: "def yesno_choice(self, prompt, default=None):",
			Insert: "        return True\n",
		},
		{
			// Answer free-form prompts with a fixed project name.
			File:   filepath.Join("rapt", "buildlib", "rapt", "interface.py"),
			Marker: "def input(self, prompt, empty=None):",
			Insert: "        return \"renutil\"\n",
		},
	}
}

// applyPatches applies every rule against the tree rooted at root,
// failing on the first missing marker or unreadable file.
func applyPatches(root string, rules []patchRule) error {
	for _, rule := range rules {
		if err := applyPatch(root, rule); err != nil {
			return err
		}
	}
	return nil
}

// applyPatch rewrites a single file per its rule.
func applyPatch(root string, rule patchRule) error {
	target := filepath.Join(root, rule.File)
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &PatchError{File: rule.File, Marker: rule.Marker}
		}
		return fmt.Errorf("reading patch target %s: %w", target, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	at := -1
	for i, line := range lines {
		if strings.Contains(line, rule.Marker) {
			at = i + 1 + rule.SkipLines
			break
		}
	}
	if at < 0 {
		return &PatchError{File: rule.File, Marker: rule.Marker}
	}
	if at > len(lines) {
		at = len(lines)
	}

	// Re-applying a rule must not duplicate its insert; trees are patched
	// in place and a retried stage sees its own earlier work.
	if strings.HasPrefix(strings.Join(lines[at:], ""), rule.Insert) {
		return nil
	}

	var b strings.Builder
	for _, line := range lines[:at] {
		b.WriteString(line)
	}
	b.WriteString(rule.Insert)
	for _, line := range lines[at:] {
		b.WriteString(line)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat patch target %s: %w", target, err)
	}
	if err := os.WriteFile(target, []byte(b.String()), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing patched %s: %w", target, err)
	}
	return nil
}
