package store

import (
	"context"
	"log"

	"fruitwheel/internal/wheel"
)

// teeHistory writes history to a primary store and mirrors it to an archive.
// Reads come from the primary; an archive write failure is logged, not
// propagated, so a slow Postgres never blocks settlement.
type teeHistory struct {
	primary wheel.HistoryStore
	archive wheel.HistoryStore
}

func TeeHistory(primary, archive wheel.HistoryStore) wheel.HistoryStore {
	return &teeHistory{primary: primary, archive: archive}
}

func (t *teeHistory) AppendHistory(ctx context.Context, roundID int64, winner wheel.Category) error {
	if err := t.primary.AppendHistory(ctx, roundID, winner); err != nil {
		return err
	}
	if err := t.archive.AppendHistory(ctx, roundID, winner); err != nil {
		log.Printf("[STORE] history archive write for round %d failed: %v", roundID, err)
	}
	return nil
}

func (t *teeHistory) RecentHistory(ctx context.Context, limit int) ([]wheel.HistoryEntry, error) {
	return t.primary.RecentHistory(ctx, limit)
}
