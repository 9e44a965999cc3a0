// SPDX-License-Identifier: MPL-2.0

package install

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// extractArchive unpacks a zip archive into dest, stripping the longest
// directory prefix shared by every file entry. Release archives wrap their
// contents in a version-named top-level directory ("renpy-7.4.11-sdk/");
// stripping it makes the resulting tree root match the expected layout
// regardless of the archive's internal naming.
func extractArchive(ctx context.Context, archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer func() { _ = r.Close() }() // read-only archive handle

	prefix := commonDirPrefix(r.File)

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extraction cancelled: %w", err)
		}

		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		// Zip-slip guard: entries must stay inside dest.
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("archive entry %q escapes extraction root", f.Name)
		}

		target := filepath.Join(dest, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// extractFile writes a single archive entry to target, preserving the
// entry's file mode.
func extractFile(f *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", target, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}

// commonDirPrefix returns the longest directory prefix (with trailing
// slash) shared by every file entry, or "" when the entries do not share
// one. Directory-only entries are ignored, matching how listing-style
// archives advertise their wrapper directory.
func commonDirPrefix(files []*zip.File) string {
	var prefix []string
	first := true

	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		dir := path.Dir(f.Name)
		if dir == "." {
			return ""
		}
		parts := strings.Split(dir, "/")
		if first {
			prefix = parts
			first = false
			continue
		}
		n := min(len(prefix), len(parts))
		var i int
		for i = 0; i < n; i++ {
			if prefix[i] != parts[i] {
				break
			}
		}
		prefix = prefix[:i]
		if len(prefix) == 0 {
			return ""
		}
	}

	if len(prefix) == 0 {
		return ""
	}
	return strings.Join(prefix, "/") + "/"
}
