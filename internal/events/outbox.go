package events

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
)

// Outbox hands batches of unpublished events to a publisher. Events whose
// ids the publisher returns are marked processed; the rest stay pending.
type Outbox interface {
	Process(ctx context.Context, limit int, publish func(context.Context, []models.OutboxEvent) []uuid.UUID) error
}

// SQLOutbox claims rows with FOR UPDATE SKIP LOCKED so several pollers can
// share the table without publishing the same event twice.
type SQLOutbox struct {
	db *sql.DB
}

func NewSQLOutbox(db *sql.DB) *SQLOutbox {
	return &SQLOutbox{db: db}
}

func (o *SQLOutbox) Process(ctx context.Context, limit int, publish func(context.Context, []models.OutboxEvent) []uuid.UUID) error {
	return database.WithTransaction(ctx, o.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		events, err := store.ClaimUnprocessedEvents(ctx, tx, limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		for _, id := range publish(ctx, events) {
			if err := store.MarkEventProcessed(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}
