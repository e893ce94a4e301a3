package store

import (
	"context"
	"fmt"
)

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.get(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = ?)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.exec(ctx,
		"INSERT INTO processed_events (event_id, event_type, processed_at) VALUES (?, ?, ?) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType, now())
	return err
}

// ResetTraceabilityData deletes every traceability record, children first.
// Processed events are kept so replayed messages stay deduplicated.
func (s *Store) ResetTraceabilityData(ctx context.Context) error {
	for _, table := range []string{"fitments", "inspections", "marks", "components", "batches", "vendors", "assets"} {
		if _, err := s.exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
