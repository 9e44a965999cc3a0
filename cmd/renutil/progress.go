// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"sync"

	"github.com/charmbracelet/log"

	"renutil/internal/install"
	"renutil/internal/version"
)

// logReporter renders install progress through the CLI logger. Download
// progress is throttled to coarse steps so log output stays readable on
// non-interactive terminals and in CI logs.
type logReporter struct {
	logger *log.Logger

	mu   sync.Mutex
	last map[string]int
}

func newLogReporter(logger *log.Logger) *logReporter {
	return &logReporter{logger: logger, last: make(map[string]int)}
}

func (r *logReporter) Stage(v version.Version, s install.Stage) {
	switch s {
	case install.StageDone:
		r.logger.Info("install complete", "version", v)
	case install.StageFailed:
		r.logger.Error("install failed", "version", v)
	default:
		r.logger.Info(s.String(), "version", v)
	}
}

func (r *logReporter) Progress(artifact string, transferred, total int64) {
	if total <= 0 {
		return
	}
	pct := int(transferred * 100 / total)
	step := pct / 10 * 10

	r.mu.Lock()
	defer r.mu.Unlock()
	if step <= r.last[artifact] && step != 100 {
		return
	}
	if r.last[artifact] == 100 {
		return
	}
	r.last[artifact] = step
	r.logger.Info("downloading", "artifact", artifact, "percent", step)
}
