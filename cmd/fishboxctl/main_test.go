package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishbox/internal/core"
	"fishbox/internal/stats"
	"fishbox/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seededDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "fishbox.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	now := time.Now()
	weight := 2500
	for _, c := range []core.Catch{
		{OwnerID: "anna", Species: "Hecht", Length: 75, Weight: &weight, Date: now.Add(-time.Hour), IsPublic: true,
			Coordinates: &core.Coordinates{Lat: 52.4372, Lng: 13.644}},
		{OwnerID: "anna", Species: "Barsch", Length: 28, Date: now.Add(-2 * time.Hour), IsPublic: true,
			Coordinates: &core.Coordinates{Lat: 52.43721, Lng: 13.64401}},
		{OwnerID: "ben", Species: "Karpfen", Length: 60, Date: now.AddDate(0, 0, -40), IsPublic: true},
	} {
		_, err := repo.Insert(ctx, c)
		require.NoError(t, err)
	}
	return dbPath
}

func TestMigrateCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "fishbox.db")

	out, err := run(t, "migrate", "up", "--db", dbPath, "--json")
	require.NoError(t, err)
	var v schemaVersion
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Positive(t, v.Version)
	assert.False(t, v.Dirty)

	out, err = run(t, "migrate", "version", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(clean)")

	_, err = run(t, "migrate", "down", "--db", dbPath, "--steps", "0")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	dbPath := seededDB(t)

	out, err := run(t, "stats", "--db", dbPath, "--user", "anna")
	require.NoError(t, err)
	assert.Contains(t, out, "Catches")
	assert.Contains(t, out, "Hecht")
	assert.Contains(t, out, "2500 g")

	_, err = run(t, "stats", "--db", dbPath)
	assert.Error(t, err, "--user is required")
}

func TestLeaderboardCommand(t *testing.T) {
	dbPath := seededDB(t)

	out, err := run(t, "leaderboard", "--db", dbPath, "--window", "month", "--metric", "size", "--json")
	require.NoError(t, err)
	var entries []stats.LeaderboardEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1, "ben's catch is outside the window")
	assert.Equal(t, "anna", entries[0].OwnerID)
	assert.Equal(t, 75, entries[0].MaxLength)

	_, err = run(t, "leaderboard", "--db", dbPath, "--window", "decade")
	assert.Error(t, err)
}

func TestSpotsCommand(t *testing.T) {
	dbPath := seededDB(t)

	out, err := run(t, "spots", "--db", dbPath, "--user", "anna", "--precision", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "header plus one merged spot")
	assert.Contains(t, lines[1], "52.437")

	_, err = run(t, "spots", "--db", dbPath, "--user", "anna", "--sort", "size")
	assert.Error(t, err)
}
