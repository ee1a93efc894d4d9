package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Size())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Size())
}

func TestCursorToken(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	token, err := EncodeCursor(Cursor{ID: 42, CreatedAt: at})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.ID)
	assert.True(t, at.Equal(cursor.CreatedAt))

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ id int64 }
	rows := []*row{{3}, {2}, {1}}
	cursorOf := func(r *row) Cursor { return Cursor{ID: r.id} }

	page, info := BuildCursorPageInfo(rows, 2, cursorOf)
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 3, cursorOf)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}
