package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/solvant/claimant/internal/wishlist"
	"go.uber.org/zap"
)

// verifyPacing spaces consecutive verification lookups so the commands do not
// read as a burst.
const verifyPacing = 3 * time.Second

// Report summarizes one verification sweep.
type Report struct {
	Total    int
	Verified int
	Failed   int
}

// SuccessRate is the verified fraction as a percentage.
func (r Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}

	return float64(r.Verified) / float64(r.Total) * 100
}

// Verifier confirms wishlist entries against live lookups.
type Verifier struct {
	coordinator *Coordinator
	store       *wishlist.Store
	channelID   uint64
	logger      *zap.Logger

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

// NewVerifier runs lookups in channelID against the given wishlist.
func NewVerifier(coordinator *Coordinator, store *wishlist.Store, channelID uint64, logger *zap.Logger) *Verifier {
	return &Verifier{
		coordinator: coordinator,
		store:       store,
		channelID:   channelID,
		logger:      logger.Named("verifier"),
		sleep:       sleepCtx,
	}
}

// VerifyUnverified looks up every unverified wishlist entry and marks those
// that exist, adopting the canonical name and recording the series, kakera
// value, and character id.
func (v *Verifier) VerifyUnverified(ctx context.Context) (Report, error) {
	var report Report

	for _, entry := range v.store.Unverified() {
		report.Total++

		result, err := v.coordinator.Request(ctx, v.channelID, entry.Name)
		if err != nil {
			return report, fmt.Errorf("failed to verify %q: %w", entry.Name, err)
		}

		if result.Found {
			if err := v.store.MarkVerified(entry.Name, result.Name, result.Series, result.KakeraValue, result.ExternalID); err != nil {
				return report, err
			}

			report.Verified++

			v.logger.Info("Verified wishlist entry",
				zap.String("name", entry.Name),
				zap.String("series", result.Series))
		} else {
			report.Failed++

			v.logger.Warn("Wishlist entry not found", zap.String("name", entry.Name))
		}

		if err := v.sleep(ctx, verifyPacing); err != nil {
			return report, err
		}
	}

	return report, nil
}

// AddVerified looks the character up first and only adds it when it exists.
// Returns false when the character is unknown or already listed.
func (v *Verifier) AddVerified(ctx context.Context, name, series string) (bool, error) {
	result, err := v.coordinator.Request(ctx, v.channelID, name)
	if err != nil {
		return false, err
	}

	if !result.Found {
		v.logger.Warn("Character does not exist", zap.String("name", name))
		return false, nil
	}

	canonical := result.Name
	if canonical == "" {
		canonical = name
	}

	if series == "" {
		series = result.Series
	}

	added, err := v.store.Add(canonical, series)
	if err != nil || !added {
		return added, err
	}

	return true, v.store.MarkVerified(canonical, canonical, result.Series, result.KakeraValue, result.ExternalID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
