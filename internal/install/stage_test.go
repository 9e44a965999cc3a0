// SPDX-License-Identifier: MPL-2.0

package install

import "testing"

func TestStageNext(t *testing.T) {
	t.Parallel()

	order := []Stage{
		StageResolving, StageFetching, StageExtracting, StagePatching,
		StageToolchainSetup, StageToolchainCompile, StageCommitting, StageDone,
	}
	for i := 0; i < len(order)-1; i++ {
		if got := order[i].Next(); got != order[i+1] {
			t.Errorf("%v.Next() = %v, want %v", order[i], got, order[i+1])
		}
	}
}

func TestStageTerminalAbsorbs(t *testing.T) {
	t.Parallel()

	for _, s := range []Stage{StageDone, StageFailed} {
		if !s.Terminal() {
			t.Errorf("%v.Terminal() = false", s)
		}
		if got := s.Next(); got != s {
			t.Errorf("%v.Next() = %v, want %v", s, got, s)
		}
		if got := s.Fail(); got != s {
			t.Errorf("%v.Fail() = %v, want %v", s, got, s)
		}
	}
}

func TestStageFail(t *testing.T) {
	t.Parallel()

	for _, s := range []Stage{StageResolving, StageFetching, StageCommitting} {
		if s.Terminal() {
			t.Errorf("%v.Terminal() = true", s)
		}
		if got := s.Fail(); got != StageFailed {
			t.Errorf("%v.Fail() = %v, want StageFailed", s, got)
		}
	}
}

func TestStageString(t *testing.T) {
	t.Parallel()

	cases := map[Stage]string{
		StageFetching: "fetching",
		StageDone:     "done",
		StageFailed:   "failed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
