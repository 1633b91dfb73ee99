package events

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/config"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
	"github.com/safar/cartstore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLOutbox_PublishesPendingRows(t *testing.T) {
	db := testutil.PostgresDB(t)
	ctx := context.Background()

	aggregates := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range aggregates {
		err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
			return store.InsertOutboxEvent(ctx, tx, id, models.EventTypeOrderCreated, []byte(`{}`))
		})
		require.NoError(t, err)
	}

	writer := &fakeWriter{failOn: 3}
	p := NewOutboxPoller(NewSQLOutbox(db), writer, config.KafkaConfig{BatchSize: 10}, zap.NewNop())

	require.NoError(t, p.ProcessOnce(ctx))
	require.Len(t, writer.messages, 2)
	assert.Equal(t, aggregates[0].String(), string(writer.messages[0].Key))
	assert.Equal(t, aggregates[1].String(), string(writer.messages[1].Key))

	var pending int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM outbox_events WHERE processed_at IS NULL`).Scan(&pending))
	assert.Equal(t, 1, pending)

	require.NoError(t, p.ProcessOnce(ctx))
	require.Len(t, writer.messages, 3)
	assert.Equal(t, aggregates[2].String(), string(writer.messages[2].Key))

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM outbox_events WHERE processed_at IS NULL`).Scan(&pending))
	assert.Equal(t, 0, pending)
}
