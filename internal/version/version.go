// SPDX-License-Identifier: MPL-2.0

// Package version parses and orders Ren'Py version identifiers.
//
// Ren'Py has used several numbering schemes over its lifetime: a legacy
// two-component form ("6.99"), the standard three-component form
// ("7.4.11"), a four-component hotfix form ("6.99.12.4"), and forms
// carrying a pre-release or nightly qualifier ("8.2.0-rc1",
// "8.4.0+nightly-2024-06-01"). All of them parse into the same immutable
// Version value with a well-defined total order.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrParse is the sentinel error wrapped by ParseError.
var ErrParse = errors.New("invalid version string")

type (
	// Version is an immutable, comparable Ren'Py version identifier.
	// The zero value is "0.0.0" and compares lower than any release.
	Version struct {
		Major int
		Minor int
		Patch int
		// Hotfix is the optional fourth numeric component used by
		// historical point releases such as 6.99.12.4. Zero when absent.
		Hotfix int
		// Pre is the pre-release qualifier ("rc1", "nightly"). Empty for
		// final releases. A pre-release sorts before the final release
		// with the same numeric components.
		Pre string
		// Build is the build metadata, typically a nightly timestamp
		// ("nightly-2024-06-01"). It participates in ordering only as a
		// final tie-break.
		Build string
	}

	// ParseError reports an unparsable version string. It wraps ErrParse
	// so callers can classify with errors.Is and skip the offending entry.
	ParseError struct {
		Input  string
		Reason string
	}
)

// Error returns a human-readable description of the parse failure.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing version %q: %s", e.Input, e.Reason)
}

// Unwrap returns ErrParse so callers can use errors.Is.
func (e *ParseError) Unwrap() error { return ErrParse }

// Parse parses text into a Version. Accepted forms are
// "major.minor", "major.minor.patch", "major.minor.patch.hotfix",
// each optionally followed by "-pre" and/or "+build". A single trailing
// slash (as produced by directory listings) is tolerated.
func Parse(text string) (Version, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(text), "/")
	if raw == "" {
		return Version{}, &ParseError{Input: text, Reason: "empty string"}
	}

	rest := raw
	var v Version

	if i := strings.IndexByte(rest, '+'); i >= 0 {
		v.Build = rest[i+1:]
		rest = rest[:i]
		if v.Build == "" {
			return Version{}, &ParseError{Input: text, Reason: "empty build metadata"}
		}
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		v.Pre = rest[i+1:]
		rest = rest[:i]
		if v.Pre == "" {
			return Version{}, &ParseError{Input: text, Reason: "empty pre-release qualifier"}
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, &ParseError{Input: text, Reason: "want 2 to 4 numeric components"}
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (len(p) > 1 && p[0] == '0') {
			return Version{}, &ParseError{Input: text, Reason: fmt.Sprintf("component %q is not a plain number", p)}
		}
		nums[i] = n
	}

	v.Major, v.Minor = nums[0], nums[1]
	if len(nums) > 2 {
		v.Patch = nums[2]
	}
	if len(nums) > 3 {
		v.Hotfix = nums[3]
	}
	return v, nil
}

// MustParse is Parse for statically known inputs; it panics on error.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical form: three numeric components, the hotfix
// component only when non-zero, then pre-release and build qualifiers.
// Parse(v.String()) always yields a Version equal to v.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Hotfix != 0 {
		fmt.Fprintf(&b, ".%d", v.Hotfix)
	}
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Nightly reports whether v is a nightly (or otherwise pre-release) build.
func (v Version) Nightly() bool {
	return v.Pre != "" || strings.HasPrefix(v.Build, "nightly")
}

// semverKey renders the numeric triple and pre-release qualifier in the
// form understood by golang.org/x/mod/semver. Hotfix and Build are
// excluded; Compare breaks those ties separately.
func (v Version) semverKey() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// Compare returns -1, 0, or +1 when a sorts lower than, equal to, or
// higher than b. The order is total: numeric triple first (with
// pre-releases before their final release, per semver), then the hotfix
// component, then the pre-release qualifier lexically, then the build
// metadata. Build metadata marks nightly snapshots, so a Build-tagged
// version sorts before the bare release with the same components; two
// snapshots order by their timestamps lexically, which is chronological.
func Compare(a, b Version) int {
	if c := semver.Compare(a.semverKey(), b.semverKey()); c != 0 {
		return c
	}
	if a.Hotfix != b.Hotfix {
		if a.Hotfix < b.Hotfix {
			return -1
		}
		return 1
	}
	// semver.Compare treats two malformed pre-release qualifiers as
	// equal; keep the order total over everything Parse accepts.
	if c := strings.Compare(a.Pre, b.Pre); c != 0 {
		return c
	}
	switch {
	case a.Build == b.Build:
		return 0
	case a.Build == "":
		return 1
	case b.Build == "":
		return -1
	}
	return strings.Compare(a.Build, b.Build)
}

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// Equal reports whether a and b denote the same version.
func Equal(a, b Version) bool { return Compare(a, b) == 0 }
