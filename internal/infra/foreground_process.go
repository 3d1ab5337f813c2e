package infra

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// ProcessSourceName labels events observed from the process table.
const ProcessSourceName = "process"

// maxListFailures is how many consecutive unreadable scans end observation.
const maxListFailures = 3

// ProcessForegroundSource is the desktop host adapter: a process that appears
// in the process table is reported as a foreground transition to its name.
// The table is scanned on an interval; the session downstream is push-based.
type ProcessForegroundSource struct {
	pm       domain.ProcessManager
	interval time.Duration
	logger   *zap.Logger
}

// NewProcessForegroundSource creates a source scanning every interval.
func NewProcessForegroundSource(pm domain.ProcessManager, interval time.Duration, logger *zap.Logger) *ProcessForegroundSource {
	if interval <= 0 {
		interval = defaultScanInterval
	}
	return &ProcessForegroundSource{
		pm:       pm,
		interval: interval,
		logger:   logger,
	}
}

// Name implements domain.ForegroundSource.
func (s *ProcessForegroundSource) Name() string {
	return ProcessSourceName
}

// Observe pushes one event per newly seen process until ctx is done. The
// first scan reports everything already running. Repeated scan failures end
// observation with domain.ErrObservationUnavailable.
func (s *ProcessForegroundSource) Observe(ctx context.Context, sink domain.ForegroundSink) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	seen := make(map[int]string)
	failures := 0

	for {
		names, err := s.pm.ListNames()
		if err != nil {
			failures++
			s.logger.Warn("process table unreadable",
				zap.Int("consecutive_failures", failures),
				zap.Error(err))
			if failures >= maxListFailures {
				return fmt.Errorf("%w: process table unreadable: %v", domain.ErrObservationUnavailable, err)
			}
		} else {
			failures = 0
			if err := s.emitNew(ctx, sink, seen, names); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			seen = names
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *ProcessForegroundSource) emitNew(ctx context.Context, sink domain.ForegroundSink, seen, names map[int]string) error {
	var fresh []int
	for pid, name := range names {
		if prev, ok := seen[pid]; !ok || prev != name {
			fresh = append(fresh, pid)
		}
	}
	sort.Ints(fresh)

	now := time.Now()
	for _, pid := range fresh {
		ev := domain.ForegroundEvent{
			Identifier: domain.Identifier(names[pid]),
			Timestamp:  now,
			Source:     ProcessSourceName,
		}
		if err := sink.Notify(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.ForegroundSource = (*ProcessForegroundSource)(nil)
