// SPDX-License-Identifier: MPL-2.0

package install

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeArchive(t *testing.T, entries []zipEntry) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(p, buildZip(t, "", entries), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExtractArchive_StripsWrapperDirectory(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []zipEntry{
		{name: "renpy-7.4.11-sdk/renpy.py", body: "entry\n"},
		{name: "renpy-7.4.11-sdk/lib/linux-x86_64/renpy", body: "bin", exec: true},
	})
	dest := t.TempDir()

	if err := extractArchive(context.Background(), archive, dest); err != nil {
		t.Fatalf("extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "renpy.py"))
	if err != nil {
		t.Fatalf("wrapper directory not stripped: %v", err)
	}
	if string(got) != "entry\n" {
		t.Errorf("content = %q", got)
	}

	info, err := os.Stat(filepath.Join(dest, "lib", "linux-x86_64", "renpy"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Error("executable bit not preserved")
	}
}

func TestExtractArchive_NoSharedPrefix(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []zipEntry{
		{name: "a/one.txt", body: "1"},
		{name: "b/two.txt", body: "2"},
	})
	dest := t.TempDir()

	if err := extractArchive(context.Background(), archive, dest); err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, rel := range []string{"a/one.txt", "b/two.txt"} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
}

func TestExtractArchive_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []zipEntry{
		{name: "ok.txt", body: "fine"},
		{name: "../evil.txt", body: "nope"},
	})
	dest := t.TempDir()

	// Depending on the zip reader's own path hardening the rejection can
	// come from the reader or from the extraction guard; either way the
	// entry must not land outside dest.
	if err := extractArchive(context.Background(), archive, dest); err == nil {
		t.Fatal("escaping entry accepted")
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt")); statErr == nil {
		t.Error("entry escaped the extraction root")
	}
}

func TestExtractArchive_Cancelled(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []zipEntry{{name: "x/one.txt", body: "1"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := extractArchive(ctx, archive, t.TempDir()); err == nil {
		t.Fatal("cancelled extraction succeeded")
	}
}

func TestCommonDirPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		entries []zipEntry
		want    string
	}{
		{
			name: "single wrapper",
			entries: []zipEntry{
				{name: "wrap/a.txt"}, {name: "wrap/sub/b.txt"},
			},
			want: "wrap/",
		},
		{
			name: "nested shared prefix",
			entries: []zipEntry{
				{name: "wrap/inner/a.txt"}, {name: "wrap/inner/b.txt"},
			},
			want: "wrap/inner/",
		},
		{
			name: "root level file defeats prefix",
			entries: []zipEntry{
				{name: "wrap/a.txt"}, {name: "top.txt"},
			},
			want: "",
		},
		{
			name: "diverging tops",
			entries: []zipEntry{
				{name: "a/x.txt"}, {name: "b/y.txt"},
			},
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := zip.OpenReader(writeArchive(t, tc.entries))
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = r.Close() }()
			if got := commonDirPrefix(r.File); got != tc.want {
				t.Errorf("commonDirPrefix = %q, want %q", got, tc.want)
			}
		})
	}
}
