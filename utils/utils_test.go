package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	t.Run("empty input returns nil", func(t *testing.T) {
		assert.Nil(t, Chunk([]string{}, 10))
		assert.Nil(t, Chunk[string](nil, 10))
	})

	t.Run("non-positive size returns nil", func(t *testing.T) {
		assert.Nil(t, Chunk([]int{1, 2, 3}, 0))
		assert.Nil(t, Chunk([]int{1, 2, 3}, -1))
	})

	t.Run("exact multiple", func(t *testing.T) {
		chunks := Chunk([]int{1, 2, 3, 4}, 2)
		assert.Equal(t, [][]int{{1, 2}, {3, 4}}, chunks)
	})

	t.Run("remainder goes to the last chunk", func(t *testing.T) {
		items := make([]int, 23)
		for i := range items {
			items[i] = i
		}
		chunks := Chunk(items, 10)
		assert.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 10)
		assert.Len(t, chunks[1], 10)
		assert.Len(t, chunks[2], 3)
	})

	t.Run("size larger than input yields one chunk", func(t *testing.T) {
		chunks := Chunk([]string{"a", "b"}, 10)
		assert.Equal(t, [][]string{{"a", "b"}}, chunks)
	})
}

func TestIsTrue(t *testing.T) {
	assert.False(t, IsTrue(nil))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.True(t, IsTrue(ToPtr(true)))
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2025, 3, 14, 15, 9, 26, 535, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}

func TestStartOfWeek(t *testing.T) {
	// 2025-03-14 is a Friday; the week starts Monday 2025-03-10
	friday := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(friday))

	// Sunday belongs to the week that started the previous Monday
	sunday := time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))

	// Monday is its own week start
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(monday))
}

func TestIsExpiredPtr(t *testing.T) {
	assert.False(t, IsExpiredPtr(nil))

	past := UTCNow().Add(-time.Minute)
	assert.True(t, IsExpiredPtr(&past))

	future := UTCNow().Add(time.Minute)
	assert.False(t, IsExpiredPtr(&future))
}
