package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/models"
)

func TestRunLocation_VisitsEveryRowOnceInOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.vendor.urlPageSize = 2
	h.vendor.pageTotal = 5
	h.write(t, h.env.Paths.Input(), "metro_locations.csv", "id,city\nA,Karachi\nB,Lahore\nC,Quetta\n")

	desc := descriptor(models.ActionProcessLocation)
	desc.PageSize = 1

	steps := 0
	for desc.Action == models.ActionProcessLocation {
		next, err := RunLocation(ctx, h.env, desc)
		require.NoError(t, err)
		desc = next
		steps++
		require.Less(t, steps, 10)
	}

	assert.Equal(t, 3, steps)
	assert.Equal(t, []string{"A@0", "A@2", "A@4", "B@0", "B@2", "B@4", "C@0", "C@2", "C@4"}, h.vendor.pages)
	assert.Equal(t, models.ActionProcessLogs, desc.Action)
	assert.Equal(t, models.ActionProcessLocation, desc.PreviousAction)
	assert.Equal(t, 0, desc.Offset)
	assert.True(t, desc.HasMore)
	assert.Equal(t, testRunID, desc.RunID)
	assert.Equal(t, "100%", desc.Completed)

	// One second between pages of a row, never the row delay with a page size of 1
	for _, d := range h.sleeper.sleeps {
		assert.Equal(t, time.Second, d)
	}
	assert.Len(t, h.sleeper.sleeps, 6)

	logContent := h.read(t, h.env.Paths.Status(), "metro_locations.log")
	lines := strings.Split(strings.TrimSpace(logContent), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "2024-05-03 10:15:00,process.location,20240503101500,A,success", lines[0])

	exists, err := h.storage.FileExists(ctx, h.env.Paths.Location(), "B.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunLocation_ContinuationCarriesOffset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.write(t, h.env.Paths.Input(), "metro_locations.csv", "id\nA\nB\nC\n")

	desc := descriptor(models.ActionProcessLocation)
	desc.PageSize = 2

	next, err := RunLocation(ctx, h.env, desc)
	require.NoError(t, err)
	assert.Equal(t, models.ActionProcessLocation, next.Action)
	assert.Equal(t, 2, next.Offset)
	assert.True(t, next.HasMore)
	assert.Equal(t, "66.67%", next.Completed)
	// Second row of the page waits the row delay
	assert.Equal(t, []time.Duration{2 * time.Second}, h.sleeper.sleeps)
}

func TestRunLocation_FetchErrorLogsFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.vendor.pageErr = errors.New("boom")
	h.write(t, h.env.Paths.Input(), "metro_locations.csv", "id\nA\n")

	next, err := RunLocation(ctx, h.env, descriptor(models.ActionProcessLocation))
	require.NoError(t, err)
	assert.Equal(t, models.ActionProcessLogs, next.Action)
	assert.Equal(t, []string{"A@0"}, h.vendor.pages)

	logContent := h.read(t, h.env.Paths.Status(), "metro_locations.log")
	assert.Equal(t, "2024-05-03 10:15:00,process.location,20240503101500,url,A,0,failure\n", logContent)
	assert.Equal(t, "None", h.read(t, h.env.Paths.FailedLocation(), "A_0.json"))
}

func TestRunLocation_GeneratesRunID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.write(t, h.env.Paths.Input(), "metro_locations.csv", "id\nA\n")

	desc := descriptor(models.ActionProcessLocation)
	desc.RunID = ""
	next, err := RunLocation(ctx, h.env, desc)
	require.NoError(t, err)
	assert.Equal(t, "20240503101500", next.RunID)
}

func TestRunLocation_MissingSeedFails(t *testing.T) {
	h := newHarness(t)
	_, err := RunLocation(context.Background(), h.env, descriptor(models.ActionProcessLocation))
	assert.Error(t, err)
}

func TestRunLocation_BudgetExhaustedStopsAfterFirstRow(t *testing.T) {
	h := newHarness(t)
	h.write(t, h.env.Paths.Input(), "metro_locations.csv", "id\nA\nB\nC\n")
	h.env.Budget = FixedBudget(60 * time.Second)

	desc := descriptor(models.ActionProcessLocation)
	desc.PageSize = 10
	next, err := RunLocation(context.Background(), h.env, desc)
	require.NoError(t, err)

	assert.Equal(t, models.ActionProcessLocation, next.Action)
	assert.Equal(t, 1, next.Offset)
	assert.True(t, next.HasMore)
	assert.Equal(t, []string{"A@0"}, h.vendor.pages)
}
