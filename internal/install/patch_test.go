// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePatchTarget(t *testing.T, root, rel, content string) string {
	t.Helper()
	target := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return target
}

func TestApplyPatch_InsertsAfterMarker(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := writePatchTarget(t, root, "script.py", "alpha\nmarker line\nomega\n")

	err := applyPatch(root, patchRule{
		File:   "script.py",
		Marker: "marker",
		Insert: "inserted\n",
	})
	if err != nil {
		t.Fatalf("applyPatch: %v", err)
	}

	got, _ := os.ReadFile(target)
	want := "alpha\nmarker line\ninserted\nomega\n"
	if string(got) != want {
		t.Errorf("patched content = %q, want %q", got, want)
	}
}

func TestApplyPatch_SkipLinesShiftsInsertion(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := writePatchTarget(t, root, "script.py", "import sys\nimport os\nmain()\n")

	err := applyPatch(root, patchRule{
		File:      "script.py",
		Marker:    "import sys",
		Insert:    "inserted\n",
		SkipLines: 1,
	})
	if err != nil {
		t.Fatalf("applyPatch: %v", err)
	}

	got, _ := os.ReadFile(target)
	want := "import sys\nimport os\ninserted\nmain()\n"
	if string(got) != want {
		t.Errorf("patched content = %q, want %q", got, want)
	}
}

func TestApplyPatch_SecondApplyIsNoOp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := writePatchTarget(t, root, "script.py", "alpha\nmarker line\nomega\n")
	rule := patchRule{File: "script.py", Marker: "marker", Insert: "inserted\n"}

	if err := applyPatch(root, rule); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	once, _ := os.ReadFile(target)

	if err := applyPatch(root, rule); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	twice, _ := os.ReadFile(target)

	if string(once) != string(twice) {
		t.Errorf("second apply changed content: %q -> %q", once, twice)
	}
	if strings.Count(string(twice), "inserted") != 1 {
		t.Errorf("insert duplicated: %q", twice)
	}
}

func TestHeadlessPatches_Reapplicable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePatchTarget(t, root, filepath.Join("rapt", "android.py"),
		"#!/usr/bin/env python\nimport sys\nimport os\n\nmain()\n")
	writePatchTarget(t, root, filepath.Join("rapt", "buildlib", "rapt", "interface.py"),
		"class Interface(object):\n"+
			"    def yesno_choice(self, prompt, default=None):\n"+
			"        ask(prompt)\n"+
			"    def input(self, prompt, empty=None):\n"+
			"        ask(prompt)\n")

	rules := headlessPatches("/opt/site-packages")
	if err := applyPatches(root, rules); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	once, _ := os.ReadFile(filepath.Join(root, "rapt", "buildlib", "rapt", "interface.py"))

	if err := applyPatches(root, rules); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	twice, _ := os.ReadFile(filepath.Join(root, "rapt", "buildlib", "rapt", "interface.py"))

	if string(once) != string(twice) {
		t.Errorf("re-application changed the patched file:\n%q\n%q", once, twice)
	}
}

func TestApplyPatch_MissingMarker(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePatchTarget(t, root, "script.py", "nothing to see\n")

	err := applyPatch(root, patchRule{File: "script.py", Marker: "import sys", Insert: "x\n"})
	if !errors.Is(err, ErrPatchTargetMissing) {
		t.Fatalf("error %v does not wrap ErrPatchTargetMissing", err)
	}
	var patchErr *PatchError
	if !errors.As(err, &patchErr) {
		t.Fatalf("error %v is not a *PatchError", err)
	}
	if patchErr.File != "script.py" || patchErr.Marker != "import sys" {
		t.Errorf("PatchError = %+v", patchErr)
	}
}

func TestApplyPatch_MissingFile(t *testing.T) {
	t.Parallel()

	err := applyPatch(t.TempDir(), patchRule{File: "absent.py", Marker: "x", Insert: "y\n"})
	if !errors.Is(err, ErrPatchTargetMissing) {
		t.Errorf("error %v does not wrap ErrPatchTargetMissing", err)
	}
}

func TestApplyPatch_PreservesMode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "tool.py")
	if err := os.WriteFile(target, []byte("marker\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := applyPatch(root, patchRule{File: "tool.py", Marker: "marker", Insert: "x\n"}); err != nil {
		t.Fatalf("applyPatch: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestHeadlessPatches_CoversBootstrapAndPrompts(t *testing.T) {
	t.Parallel()

	rules := headlessPatches("/opt/site-packages")
	if len(rules) != 3 {
		t.Fatalf("rule count = %d, want 3", len(rules))
	}

	var files []string
	for _, r := range rules {
		files = append(files, r.File)
		if !strings.HasSuffix(r.Insert, "\n") {
			t.Errorf("insert for %s does not end in newline", r.File)
		}
	}
	if files[0] != filepath.Join("rapt", "android.py") {
		t.Errorf("first rule targets %s", files[0])
	}
	if !strings.Contains(rules[0].Insert, "/opt/site-packages") {
		t.Error("bootstrap rule does not embed the site-packages path")
	}
}
