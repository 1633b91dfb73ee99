package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
)

func InsertOutboxEvent(ctx context.Context, tx *sql.Tx, aggregateID uuid.UUID, eventType string, payload []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), aggregateID, eventType, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ClaimUnprocessedEvents locks up to limit pending events, oldest first.
// Rows held by another publisher are skipped rather than waited on.
func ClaimUnprocessedEvents(ctx context.Context, tx *sql.Tx, limit int) ([]models.OutboxEvent, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at, processed_at
		 FROM outbox_events
		 WHERE processed_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var event models.OutboxEvent
		err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.CreatedAt,
			&event.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return events, nil
}

func MarkEventProcessed(ctx context.Context, q database.Querier, id uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
