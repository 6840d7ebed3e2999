package services

import (
	"context"
	"fmt"
	"time"

	"busticket/internal/utils"
)

const DefaultSweepInterval = 30 * time.Second

// Sweeper frees expired seat locks on a fixed interval until ctx ends.
type Sweeper struct {
	Ledger   SeatLedger
	Interval time.Duration
}

func (s Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	utils.LogEvent("", "sweeper", "start", "interval="+interval.String())
	for {
		select {
		case <-ctx.Done():
			utils.LogEvent("", "sweeper", "stop", "context done")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of seats released.
func (s Sweeper) Sweep(ctx context.Context) int {
	n, err := s.Ledger.ReleaseExpiredLocks(ctx)
	if err != nil {
		utils.LogEvent("", "sweeper", "release_expired", "error: "+err.Error())
		return 0
	}
	if n > 0 {
		utils.LogEvent("", "sweeper", "release_expired", fmt.Sprintf("released=%d", n))
	}
	return n
}
