// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"testing"
)

func TestParse_AcceptedForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Version
	}{
		{"6.99", Version{Major: 6, Minor: 99}},
		{"7.4.11", Version{Major: 7, Minor: 4, Patch: 11}},
		{"6.99.12.4", Version{Major: 6, Minor: 99, Patch: 12, Hotfix: 4}},
		{"8.2.0-rc1", Version{Major: 8, Minor: 2, Pre: "rc1"}},
		{"8.4.0+nightly-2024-06-01", Version{Major: 8, Minor: 4, Build: "nightly-2024-06-01"}},
		{"8.4.0-nightly+2024-06-01", Version{Major: 8, Minor: 4, Pre: "nightly", Build: "2024-06-01"}},
		// Directory listings advertise versions with a trailing slash.
		{"7.5.3/", Version{Major: 7, Minor: 5, Patch: 3}},
		{"  8.1.3 ", Version{Major: 8, Minor: 1, Patch: 3}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParse_Rejected(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"8",
		"updates",
		"8.1.3.2.1",
		"8.x.1",
		"8.01.0",
		"8.1.0-",
		"8.1.0+",
		"v8.1.0",
	} {
		_, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q): expected error, got none", in)
			continue
		}
		if !errors.Is(err, ErrParse) {
			t.Errorf("Parse(%q): error %v does not wrap ErrParse", in, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q): error %v is not a *ParseError", in, err)
		}
	}
}

func TestString_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"6.99",
		"7.4.11",
		"6.99.12.4",
		"8.2.0-rc1",
		"8.4.0+nightly-2024-06-01",
	} {
		v := MustParse(in)
		again, err := Parse(v.String())
		if err != nil {
			t.Fatalf("Parse(%q.String() = %q): %v", in, v.String(), err)
		}
		if !Equal(v, again) {
			t.Errorf("round trip of %q: got %v, want %v", in, again, v)
		}
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	t.Parallel()

	// Strictly ascending. Every adjacent (and transitive) pair must
	// compare consistently in both directions.
	ascending := []Version{
		MustParse("6.99"),
		MustParse("6.99.12"),
		MustParse("6.99.12.4"),
		MustParse("7.4.10"),
		MustParse("7.4.11"),
		MustParse("8.2.0-rc1"),
		MustParse("8.2.0"),
		MustParse("8.4.0+nightly-2024-06-01"),
		MustParse("8.4.0+nightly-2024-06-02"),
		MustParse("8.4.0"),
	}

	for i, a := range ascending {
		for j, b := range ascending {
			got := Compare(a, b)
			var want int
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%v, %v) = %d, want %d", a, b, got, want)
			}
			// Antisymmetry.
			if got != -Compare(b, a) {
				t.Errorf("Compare(%v, %v) is not antisymmetric", a, b)
			}
		}
	}
}

func TestCompare_NightlyBeforeFinalRelease(t *testing.T) {
	t.Parallel()

	nightly := MustParse("8.4.0+nightly-2024-06-01")
	final := MustParse("8.4.0")

	if !Less(nightly, final) {
		t.Errorf("Compare(%v, %v) = %d, want nightly before final", nightly, final, Compare(nightly, final))
	}
	if Compare(final, nightly) != 1 {
		t.Error("final release should sort after its nightly snapshot")
	}
}

func TestCompare_MalformedQualifiersStayOrdered(t *testing.T) {
	t.Parallel()

	// Qualifiers that semver rejects still need a stable relative order.
	a := MustParse("8.1.0-a_b")
	b := MustParse("8.1.0-c_d")

	if Equal(a, b) {
		t.Errorf("%v and %v compare equal", a, b)
	}
	if Compare(a, b) != -Compare(b, a) {
		t.Errorf("Compare(%v, %v) is not antisymmetric", a, b)
	}
	if !Less(a, MustParse("8.1.0")) {
		t.Errorf("%v should sort before its final release", a)
	}
}

func TestCompare_LegacyTwoComponentTieBreak(t *testing.T) {
	t.Parallel()

	// Absent patch/hotfix components are treated as zero.
	if !Equal(MustParse("7.4"), MustParse("7.4.0")) {
		t.Error("7.4 and 7.4.0 should be equal")
	}
	if !Less(MustParse("7.4"), MustParse("7.4.0.1")) {
		t.Error("7.4 should sort before 7.4.0.1")
	}
}

func TestNightly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"8.2.0", false},
		{"8.2.0-rc1", true},
		{"8.4.0+nightly-2024-06-01", true},
		{"8.4.0-nightly", true},
	}
	for _, tt := range tests {
		if got := MustParse(tt.in).Nightly(); got != tt.want {
			t.Errorf("Nightly(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
