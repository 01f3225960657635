package site

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/shule/core"
)

const (
	RetentionMonths      = 6
	DefaultSweepInterval = 24 * time.Hour
	submittedDateLayout  = "2006-01-02"
)

// RetentionCutoff returns the instant inquiries must be strictly after to survive a sweep.
func RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(0, -RetentionMonths, 0)
}

// ParseSubmittedDate parses an inquiry date: either "2006-01-02" (UTC midnight) or RFC3339.
func ParseSubmittedDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(submittedDateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// SweepInquiries returns the inquiries submitted after the retention cutoff, in their original order.
// Inquiries with an unparseable submitted date are dropped.
func SweepInquiries(inquiries []AdmissionInquiry, now time.Time) []AdmissionInquiry {
	cutoff := RetentionCutoff(now)
	kept := make([]AdmissionInquiry, 0, len(inquiries))
	for _, inq := range inquiries {
		submitted, err := ParseSubmittedDate(inq.SubmittedDate)
		if err != nil {
			continue
		}
		if submitted.After(cutoff) {
			kept = append(kept, inq)
		}
	}
	return kept
}

// Sweeper evicts old admission inquiries at startup and on every Interval.
type Sweeper struct {
	Store    *Store
	Interval time.Duration
	NowFunc  func() time.Time
	Logger   core.Logger
}

// NewSweeper returns a Sweeper with the default interval.
func NewSweeper(store *Store, logger core.Logger) *Sweeper {
	return &Sweeper{
		Store:    store,
		Interval: DefaultSweepInterval,
		NowFunc:  time.Now,
		Logger:   logger,
	}
}

// Sweep runs a single sweep and returns the number of evicted inquiries.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now()
	if s.NowFunc != nil {
		now = s.NowFunc()
	}

	var evicted int
	err := s.Store.Apply(ctx, func(state State) (Action, error) {
		before := len(state.Data.AdmissionInquiries)
		evicted = before - len(SweepInquiries(state.Data.AdmissionInquiries, now))
		return CleanupOldInquiries{Now: now}, nil
	})
	if err != nil {
		return 0, err
	}
	if evicted > 0 && s.Logger != nil {
		s.Logger.Info(fmt.Sprintf("site.Sweeper: evicted %d admission inquiries", evicted))
	}
	return evicted, nil
}

// Run sweeps immediately, then on every tick until `ctx` is done.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	if _, err := s.Sweep(ctx); err != nil && s.Logger != nil {
		s.Logger.Error(fmt.Sprintf("site.Sweeper.Run: %v", err), err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && s.Logger != nil {
				s.Logger.Error(fmt.Sprintf("site.Sweeper.Run: %v", err), err)
			}
		}
	}
}
