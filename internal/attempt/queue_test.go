package attempt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSubmitter struct {
	// errs[testID] is returned for that entry; missing means accept.
	errs  map[string]error
	calls []string
}

func (s *scriptedSubmitter) Submit(_ context.Context, req *SubmitRequest) (*SubmitResult, error) {
	s.calls = append(s.calls, req.TestID)
	if err, ok := s.errs[req.TestID]; ok {
		return nil, err
	}
	return &SubmitResult{Score: 50, TotalQuestions: 2, CorrectAnswers: 1, TimeSpent: req.TimeSpent}, nil
}

func entryFor(testID string) OfflineEntry {
	return OfflineEntry{
		Request:  SubmitRequest{TestID: testID, Answers: []int{0, -1}, TimeSpent: 30},
		Test:     *shortTest(),
		QueuedAt: time.Now(),
	}
}

func TestEnqueueIsDurable(t *testing.T) {
	kv := NewMemoryStore()
	queue := NewOfflineQueue(NewDeviceState(kv), &scriptedSubmitter{}, zerolog.Nop())

	queue.Enqueue(entryFor("a"))
	queue.Enqueue(entryFor("b"))

	// A second queue over the same storage sees both entries.
	reopened := NewOfflineQueue(NewDeviceState(kv), &scriptedSubmitter{}, zerolog.Nop())
	assert.Equal(t, 2, reopened.Len())
}

func TestDrainRemovesAcceptedKeepsOffline(t *testing.T) {
	kv := NewMemoryStore()
	submitter := &scriptedSubmitter{errs: map[string]error{
		"b": errors.New("connection refused"),
	}}
	queue := NewOfflineQueue(NewDeviceState(kv), submitter, zerolog.Nop())

	queue.Enqueue(entryFor("a"))
	queue.Enqueue(entryFor("b"))
	queue.Enqueue(entryFor("c"))

	var acceptedIDs []string
	accepted := queue.Drain(context.Background(), func(entry OfflineEntry, result *SubmitResult) {
		acceptedIDs = append(acceptedIDs, entry.Request.TestID)
		assert.Equal(t, 50.0, result.Score)
	})

	assert.Equal(t, 2, accepted)
	assert.Equal(t, []string{"a", "c"}, acceptedIDs)
	assert.Equal(t, []string{"a", "b", "c"}, submitter.calls, "entries are retried in order")

	// Only the transport failure survives for the next drain.
	remaining := NewDeviceState(kv).LoadOfflineQueue()
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].Request.TestID)
}

func TestDrainDropsServerRejectedEntries(t *testing.T) {
	kv := NewMemoryStore()
	submitter := &scriptedSubmitter{errs: map[string]error{
		"dup": &RejectedError{StatusCode: 409, Message: "already submitted"},
	}}
	queue := NewOfflineQueue(NewDeviceState(kv), submitter, zerolog.Nop())

	queue.Enqueue(entryFor("dup"))

	accepted := queue.Drain(context.Background(), nil)
	assert.Equal(t, 0, accepted)
	assert.Equal(t, 0, queue.Len(), "a definitive rejection is not retried forever")
}

func TestDrainEmptyQueueIsNoop(t *testing.T) {
	submitter := &scriptedSubmitter{}
	queue := NewOfflineQueue(NewDeviceState(NewMemoryStore()), submitter, zerolog.Nop())

	assert.Equal(t, 0, queue.Drain(context.Background(), nil))
	assert.Empty(t, submitter.calls)
}

func TestEngineDrainFinishesBookkeeping(t *testing.T) {
	kv := NewMemoryStore()
	engine, _, submitter := newTestEngine(kv)
	submitter.err = errors.New("offline")
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	answerAllCorrect(t, engine, test)
	result, err := engine.Submit(context.Background())
	require.NoError(t, err)
	require.True(t, result.QueuedOffline)

	state := NewDeviceState(kv)
	assert.NotContains(t, state.TestScores(), "test-1", "completion waits for server acceptance")

	// Connectivity returns on the next application load.
	submitter.err = nil
	submitter.result = &SubmitResult{Score: 100, TimeSpent: 0, TotalQuestions: 2, CorrectAnswers: 2}
	assert.Equal(t, 1, engine.DrainOfflineQueue(context.Background()))

	assert.Contains(t, state.TestScores(), "test-1")
	assert.Equal(t, 1, state.Streak().Count)
	require.Len(t, state.Attempts("test-1"), 1)
	assert.Equal(t, 0, engine.OfflineCount())
}
