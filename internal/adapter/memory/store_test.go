package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timing-notion-sync/internal/domain"
)

func TestStore_FindCreateUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, found, err := s.FindRecord(ctx, "2025-07-17", "Dev")
	require.NoError(t, err)
	assert.False(t, found)

	rec := domain.Record{Date: "2025-07-17", Project: "Dev", Duration: "0:10:00", Hours: 0.167, LastSync: time.Now()}
	require.NoError(t, s.CreateRecord(ctx, rec))
	assert.Error(t, s.CreateRecord(ctx, rec), "duplicate create must fail")

	id, found, err := s.FindRecord(ctx, "2025-07-17", "Dev")
	require.NoError(t, err)
	require.True(t, found)

	rec.Duration = "0:20:00"
	require.NoError(t, s.UpdateRecord(ctx, id, rec))
	assert.Error(t, s.UpdateRecord(ctx, "missing", rec))

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "0:20:00", records[0].Duration)

	_, found, _ = s.FindRecord(ctx, "2025-07-17", "dev")
	assert.False(t, found, "lookup is case-sensitive")
}
