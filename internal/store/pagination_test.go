package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), ID: 77}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorEmptyStartsAtNewest(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.After(time.Now()))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.True(t, errors.Is(err, ErrInvalidCursor))

	_, err = DecodeCursor("bm90IGpzb24=")
	assert.True(t, errors.Is(err, ErrInvalidCursor))
}

func TestNewOffsetPage(t *testing.T) {
	p := newOffsetPage[int](nil, 41, 2, 20)

	assert.Equal(t, []int{}, p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.Page)
}
