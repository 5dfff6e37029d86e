package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/models"
)

func seedLocations(t *testing.T, h *testHarness, ids ...string) {
	t.Helper()
	for _, id := range ids {
		h.write(t, h.env.Paths.Location(), id+".json", `{"store_id":"`+id+`","city":"Karachi"}`)
	}
	h.write(t, h.env.Paths.Location(), "notes.txt", "ignored")
}

func runMenuToEnd(t *testing.T, h *testHarness, desc models.JobDescriptor) ([]models.JobDescriptor, models.JobDescriptor) {
	t.Helper()
	var continuations []models.JobDescriptor
	for desc.Action == models.ActionProcessMenu {
		next, err := RunMenu(context.Background(), h.env, desc)
		require.NoError(t, err)
		continuations = append(continuations, next)
		desc = next
		require.Less(t, len(continuations), 20)
	}
	return continuations, desc
}

func TestRunMenu_CursorAndOffsetEndStable(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1", "2", "3")

	desc := descriptor(models.ActionProcessMenu)
	desc.PageSize = 1

	continuations, final := runMenuToEnd(t, h, desc)

	require.Len(t, continuations, 3)
	for _, c := range continuations[:2] {
		assert.Equal(t, models.ActionProcessMenu, c.Action)
		assert.Equal(t, 13, c.OffsetEnd)
		assert.True(t, c.HasMore)
	}
	assert.Equal(t, 1, continuations[0].Offset)
	assert.Equal(t, 2, continuations[1].Offset)

	assert.Equal(t, models.ActionProcessLogs, final.Action)
	assert.Equal(t, models.ActionProcessMenu, final.PreviousAction)
	assert.Equal(t, 13, final.OffsetEnd)
	assert.Equal(t, []string{"1", "2", "3"}, h.vendor.requests)

	manifest := h.read(t, h.env.Paths.Status(), ManifestName)
	assert.Equal(t, "id,file_name\n1,1.json\n2,2.json\n3,3.json\n", manifest)

	var record models.MenuRecord
	require.NoError(t, json.Unmarshal([]byte(h.read(t, h.env.Paths.Menu(), "2.json")), &record))
	assert.Equal(t, "2", record.Store.StoreID())
	assert.Equal(t, "2024-05-03 10:15:00", record.Store.String("scrape_date", ""))
	assert.NotNil(t, record.MenuDetail["items"])
}

func TestRunMenu_RerunFetchesNothing(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1", "2")

	desc := descriptor(models.ActionProcessMenu)
	desc.PageSize = 10
	_, final := runMenuToEnd(t, h, desc)
	require.Equal(t, models.ActionProcessLogs, final.Action)
	require.Len(t, h.vendor.requests, 2)

	h.vendor.requests = nil
	_, final = runMenuToEnd(t, h, desc)
	assert.Equal(t, models.ActionProcessLogs, final.Action)
	assert.Empty(t, h.vendor.requests)

	logContent := h.read(t, h.env.Paths.Status(), "metro_menu.log")
	assert.Contains(t, logContent, ",process.menu,20240503101500,file,1.json,found,success")
	assert.Contains(t, logContent, ",process.menu,20240503101500,generate_files_list,file_count,2,success")
}

func TestRunMenu_ForceFetchRefetches(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1")
	h.write(t, h.env.Paths.Menu(), "1.json", `{"store":{},"menu_detail":{}}`)

	desc := descriptor(models.ActionProcessMenu)
	desc.ForceFetch = true
	_, _ = runMenuToEnd(t, h, desc)
	assert.Equal(t, []string{"1"}, h.vendor.requests)
}

func TestRunMenu_FailureWritesMarker(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1")
	h.vendor.failMenu["1"] = true

	_, final := runMenuToEnd(t, h, descriptor(models.ActionProcessMenu))
	assert.Equal(t, models.ActionProcessLogs, final.Action)
	assert.Equal(t, "None", h.read(t, h.env.Paths.FailedMenu(), "1.json"))

	exists, err := h.storage.FileExists(context.Background(), h.env.Paths.Menu(), "1.json")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Contains(t, h.read(t, h.env.Paths.Status(), "metro_menu.log"), "url,1.json,0,failure")
}

func TestRunMenu_HaltEndsRun(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1", "2")
	h.vendor.halt = true

	desc := descriptor(models.ActionProcessMenu)
	desc.PageSize = 5
	next, err := RunMenu(context.Background(), h.env, desc)
	require.NoError(t, err)

	assert.Equal(t, models.ActionNone, next.Action)
	assert.False(t, next.HasMore)
	assert.False(t, next.GotoNextStep)
	assert.Equal(t, 0, next.Offset)
	assert.Equal(t, []string{"1"}, h.vendor.requests)
}

func TestRunMenu_BudgetExhaustedStopsAfterFirstItem(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1", "2", "3")
	h.env.Budget = FixedBudget(60 * time.Second)

	desc := descriptor(models.ActionProcessMenu)
	desc.PageSize = 10
	next, err := RunMenu(context.Background(), h.env, desc)
	require.NoError(t, err)

	assert.Equal(t, models.ActionProcessMenu, next.Action)
	assert.Equal(t, 1, next.Offset)
	assert.True(t, next.HasMore)
	assert.Equal(t, []string{"1"}, h.vendor.requests)
}

func TestRunMenu_ManifestKeptOnContinuation(t *testing.T) {
	h := newHarness(t)
	seedLocations(t, h, "1", "2")

	desc := descriptor(models.ActionProcessMenu)
	desc.PageSize = 1
	next, err := RunMenu(context.Background(), h.env, desc)
	require.NoError(t, err)

	// A location added mid-run does not change the manifest of a continuation
	seedLocations(t, h, "0")
	_, err = RunMenu(context.Background(), h.env, next)
	require.NoError(t, err)

	manifest := h.read(t, h.env.Paths.Status(), ManifestName)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(manifest), "\n")))
	assert.Equal(t, []string{"1", "2"}, h.vendor.requests)
}

func TestRunMenu_ParsersShareLocalRootWithoutMixing(t *testing.T) {
	h := newHarness(t)

	imtiazPaths := NewPaths(h.config, models.ParserImtiaz, "2024051")
	h.write(t, imtiazPaths.Location(), "imtiaz-54.json", `{"store_id":"imtiaz-54"}`)
	h.write(t, imtiazPaths.Menu(), "imtiaz-54.json", `{"store":{},"menu_detail":{}}`)
	seedLocations(t, h, "m1")

	_, final := runMenuToEnd(t, h, descriptor(models.ActionProcessMenu))
	assert.Equal(t, models.ActionProcessLogs, final.Action)
	assert.Equal(t, []string{"m1"}, h.vendor.requests)

	manifest := h.read(t, h.env.Paths.Status(), ManifestName)
	assert.NotContains(t, manifest, "imtiaz-54")

	exists, err := h.storage.FileExists(context.Background(), imtiazPaths.Status(), ManifestName)
	require.NoError(t, err)
	assert.False(t, exists)
}
