// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxChecksumBytes bounds the checksums document size (1 MB). The real
// file is a few hundred bytes per release.
const maxChecksumBytes = 1 << 20

var (
	// ErrIntegrity indicates a downloaded artifact failed verification
	// against its expected hash or size. The artifact must be discarded.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrChecksumsUnavailable indicates the release publishes no checksum
	// side channel. Callers downgrade to a size check.
	ErrChecksumsUnavailable = errors.New("checksums not published for release")
)

// IntegrityError details a verification failure. It wraps ErrIntegrity so
// callers can classify with errors.Is.
type IntegrityError struct {
	Path     string
	Expected string
	Got      string
}

// Error shows both expected and actual values for debugging.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrIntegrity so callers can use errors.Is.
func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// Checksums fetches and parses a release's checksum side channel in the
// sha256sum output format ("{sha256_hex}  {filename}" per line), keyed by
// filename. A 404 maps to ErrChecksumsUnavailable: older releases predate
// the side channel.
func (f *Fetcher) Checksums(ctx context.Context, url string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating checksums request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching checksums: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrChecksumsUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: checksums returned status %d", ErrFetch, resp.StatusCode)
	}

	sums, err := ParseChecksums(io.LimitReader(resp.Body, maxChecksumBytes))
	if err != nil {
		return nil, err
	}
	return sums, nil
}

// ParseChecksums parses sha256sum-format lines into a filename -> hash map.
// Empty lines and lines that do not match the format are skipped. Returns
// ErrChecksumsUnavailable when nothing parses, so callers treat a garbage
// document the same as a missing one.
func ParseChecksums(r io.Reader) (map[string]string, error) {
	sums := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// sha256sum separates hash and filename with two spaces (the
		// second may be "*" for binary mode).
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		hash := parts[0]
		name := strings.TrimPrefix(strings.TrimSpace(parts[1]), "*")
		if name == "" || !isHexDigest(hash) {
			continue
		}
		sums[name] = strings.ToLower(hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}
	if len(sums) == 0 {
		return nil, ErrChecksumsUnavailable
	}
	return sums, nil
}

// VerifyFile streams the file at path through SHA256 and compares the
// digest with expectedHash (case-insensitive). A mismatch returns an
// *IntegrityError wrapping ErrIntegrity.
func VerifyFile(path, expectedHash string) error {
	got, err := hashFile(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, expectedHash) {
		return &IntegrityError{
			Path:     path,
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}
	return nil
}

// hashFile returns the lowercase hex SHA256 digest of the file at path.
func hashFile(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isHexDigest checks for a 64-character hex-encoded SHA256 digest.
func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
