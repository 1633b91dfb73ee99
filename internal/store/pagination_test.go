package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ID: uuid.New()}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursor_EmptyStartsAfterNow(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, cursor.CreatedAt.After(time.Now()))
	assert.Equal(t, uuid.Max, cursor.ID)
}

func TestDecodeCursor_Malformed(t *testing.T) {
	_, err := DecodeCursor("not base64!")
	assert.Error(t, err)
}

func TestNewOffsetPage(t *testing.T) {
	page := newOffsetPage([]int{1, 2}, 41, 2, 20)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(41), page.Total)
}
