package attempt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceStateDefaultsOnMissingData(t *testing.T) {
	state := NewDeviceState(NewMemoryStore())

	_, ok := state.LoadActiveState()
	assert.False(t, ok)
	assert.Empty(t, state.TestScores())
	assert.Equal(t, StreakState{}, state.Streak())
	assert.Empty(t, state.Badges("any"))
	assert.Empty(t, state.Analytics("any"))
	assert.Empty(t, state.LoadOfflineQueue())
	assert.Empty(t, state.PracticeReveal("any"))
}

func TestDeviceStateCorruptEntryDegradesToDefault(t *testing.T) {
	kv := NewMemoryStore()
	kv.Set(keyStreak, "not a streak object")
	kv.Set(keyTestScores, []int{1, 2, 3})
	state := NewDeviceState(kv)

	assert.Equal(t, StreakState{}, state.Streak())
	assert.Empty(t, state.TestScores())
}

func TestBadgesAreUnionedNeverRemoved(t *testing.T) {
	state := NewDeviceState(NewMemoryStore())

	state.AddBadges("test-1", []string{"flawless", "speed-runner"})
	got := state.AddBadges("test-1", []string{"speed-runner", "streak-4"})

	assert.Equal(t, []string{"flawless", "speed-runner", "streak-4"}, got)
	assert.Equal(t, got, state.Badges("test-1"))
}

func TestAnalyticsAppendPerTest(t *testing.T) {
	state := NewDeviceState(NewMemoryStore())
	now := time.Now()

	state.AppendAnalytics(AnalyticsEntry{TestID: "a", Skipped: 1, RecordedAt: now})
	state.AppendAnalytics(AnalyticsEntry{TestID: "a", Skipped: 2, RecordedAt: now})
	state.AppendAnalytics(AnalyticsEntry{TestID: "b", Skipped: 3, RecordedAt: now})

	require.Len(t, state.Analytics("a"), 2)
	require.Len(t, state.Analytics("b"), 1)
	assert.Equal(t, 2, state.Analytics("a")[1].Skipped)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")

	store := NewFileStore(path)
	store.Set("k", map[string]int{"x": 1})

	var got map[string]int
	require.True(t, store.Get("k", &got))
	assert.Equal(t, 1, got["x"])

	// Another instance over the same file sees the write.
	reopened := NewFileStore(path)
	got = nil
	require.True(t, reopened.Get("k", &got))
	assert.Equal(t, 1, got["x"])

	reopened.Delete("k")
	assert.False(t, NewFileStore(path).Get("k", &got))
}

func TestFileStoreCorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{ not json"), 0o600))

	store := NewFileStore(path)
	var v any
	assert.False(t, store.Get("anything", &v))

	// And it heals on the next write.
	store.Set("k", 7)
	var n int
	assert.True(t, NewFileStore(path).Get("k", &n))
	assert.Equal(t, 7, n)
}

func TestActiveStateRoundTrip(t *testing.T) {
	state := NewDeviceState(NewMemoryStore())
	saved := &ActiveState{
		TestID:          "test-1",
		Mode:            ModeStandard,
		Test:            *shortTest(),
		Perm:            Permutation{Questions: []int{1, 0}, Options: [][]int{{0, 1}, {1, 0}}},
		Answers:         map[int]int{0: 1},
		StartedAt:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		FocusLost:       2,
		CurrentQuestion: 1,
		PerQuestionTime: []int{5, 9},
		SavedAt:         time.Date(2026, 3, 2, 9, 0, 14, 0, time.UTC),
	}
	state.SaveActiveState(saved)

	got, ok := state.LoadActiveState()
	require.True(t, ok)
	assert.Equal(t, saved, got)

	state.ClearActiveState()
	_, ok = state.LoadActiveState()
	assert.False(t, ok)
}
