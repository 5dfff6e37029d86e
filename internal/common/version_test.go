package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekByDay(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected int
	}{
		{"before first friday", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), 0},
		{"first friday", time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), 1},
		{"thursday after first friday", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), 1},
		{"second friday", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), 2},
		{"may third", time.Date(2024, 5, 3, 10, 15, 0, 0, time.UTC), 18},
		{"year starting on friday", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WeekByDay(tt.date, time.Friday))
		})
	}
}

func TestResolvePartition(t *testing.T) {
	now := time.Date(2024, 5, 3, 10, 15, 0, 0, time.UTC)

	assert.Equal(t, "20240518", DefaultPartition(now))
	assert.Equal(t, "2024051", ResolvePartition("2024051", now))
	assert.Equal(t, "20240518", ResolvePartition("", now))
	assert.Equal(t, "20240518", ResolvePartition("v1", now))
	assert.Equal(t, "20240518", ResolvePartition("123456789", now))
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2024, 5, 3, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, "20240503101500", NewRunID(now))
	assert.Regexp(t, `^inv_[0-9a-f-]{36}$`, NewInvocationID())
}
