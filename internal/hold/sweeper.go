package hold

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/metrics"
)

// DefaultSweepInterval is how often expired holds are reclaimed.
const DefaultSweepInterval = 5 * time.Second

// Sweeper periodically returns lapsed holds to AVAILABLE.  Correctness
// does not depend on it: every read re-checks expiry.  It only makes
// lapsed seats holdable again.
type Sweeper struct {
	inv      inventory.SeatInventory
	clock    clock.Clock
	interval time.Duration
	log      *logrus.Entry
}

// NewSweeper returns a Sweeper.  interval <= 0 selects DefaultSweepInterval.
func NewSweeper(inv inventory.SeatInventory, clk clock.Clock, interval time.Duration, log *logrus.Entry) *Sweeper {
	if clk == nil {
		clk = clock.Real{}
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sweeper{inv: inv, clock: clk, interval: interval, log: log.WithField("worker", "hold_sweeper")}
}

// Start sweeps every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("hold sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Error("sweep failed")
			}
		}
	}
}

// SweepOnce reclaims the expired holds of every show that has one and
// returns how many seats were released.  A failure on one show does not
// stop the others; the last error is returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	shows, err := s.inv.HeldShows(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	total := 0
	var lastErr error
	for _, showID := range shows {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.inv.SweepExpired(ctx, showID, now)
		if err != nil {
			s.log.WithError(err).WithField("show_id", showID).Error("sweep show failed")
			lastErr = err
			continue
		}
		if n > 0 {
			s.log.WithFields(logrus.Fields{"show_id": showID, "swept": n}).Info("expired holds reclaimed")
		}
		total += n
	}
	metrics.SeatsSwept.Add(float64(total))
	return total, lastErr
}
