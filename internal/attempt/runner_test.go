package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerDeliversCompletionFromTimerExpiry(t *testing.T) {
	engine, _, _ := newTestEngine(NewMemoryStore())
	test := shortTest()
	require.NoError(t, engine.Start(test, ModeStandard))

	runner := NewRunner(engine)
	runner.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	select {
	case result := <-runner.Completed:
		assert.True(t, result.AutoSubmitted)
		assert.Equal(t, PhaseIdle, engine.Phase())
	case <-time.After(5 * time.Second):
		t.Fatal("runner never completed the attempt")
	}
}

func TestRunnerIdlesWhenNoAttemptActive(t *testing.T) {
	engine, _, submitter := newTestEngine(NewMemoryStore())

	runner := NewRunner(engine)
	runner.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	runner.Run(ctx)

	assert.Empty(t, submitter.requests)
	assert.Equal(t, PhaseIdle, engine.Phase())
}
