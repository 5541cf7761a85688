package attempt

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeSubmitter struct {
	err      error
	result   *SubmitResult
	requests []*SubmitRequest
}

func (s *fakeSubmitter) Submit(_ context.Context, req *SubmitRequest) (*SubmitResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestEngine(kv Store) (*Engine, *fakeClock, *fakeSubmitter) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	submitter := &fakeSubmitter{result: &SubmitResult{Score: 100, TimeSpent: 30, TotalQuestions: 2, CorrectAnswers: 2}}
	engine := NewEngine(Deps{
		Clock:     clock,
		State:     NewDeviceState(kv),
		Submitter: submitter,
		RNG:       rand.New(rand.NewSource(11)),
		Log:       zerolog.Nop(),
	})
	return engine, clock, submitter
}

func shortTest() *Test {
	return &Test{
		ID:               "test-1",
		Title:            "Linked Lists",
		Week:             1,
		TimeLimitMinutes: 1,
		MarksPerQuestion: 1,
		Questions: []Question{
			{Prompt: "first", Options: []string{"a", "b"}, CorrectOption: 0, Explanation: "because"},
			{Prompt: "second", Options: []string{"a", "b"}, CorrectOption: 1},
		},
	}
}

// answerAllCorrect selects, for every displayed question, the displayed
// option that maps back to the correct original option.
func answerAllCorrect(t *testing.T, e *Engine, test *Test) {
	t.Helper()
	for slot, q := range e.Questions() {
		correct := test.Questions[q.OriginalIndex].CorrectOption
		for displayed, orig := range q.OptionMap {
			if orig == correct {
				require.NoError(t, e.SelectAnswer(slot, displayed))
				break
			}
		}
	}
}

func TestStartMovesIdleToActive(t *testing.T) {
	engine, _, _ := newTestEngine(NewMemoryStore())

	require.NoError(t, engine.Start(shortTest(), ModeStandard))
	assert.Equal(t, PhaseActive, engine.Phase())
	assert.Equal(t, 60, engine.Remaining())

	assert.ErrorIs(t, engine.Start(shortTest(), ModeStandard), ErrNotIdle)
}

func TestStandardStartBlockedByCooldown(t *testing.T) {
	kv := NewMemoryStore()
	engine, clock, _ := newTestEngine(kv)

	NewDeviceState(kv).RecordTestScore("test-1", 80, clock.Now().Add(-48*time.Hour))
	assert.ErrorIs(t, engine.Start(shortTest(), ModeStandard), ErrCooldownActive)
	assert.Equal(t, PhaseIdle, engine.Phase())

	// The same completion 8 days ago is out of the window.
	NewDeviceState(kv).RecordTestScore("test-1", 80, clock.Now().Add(-8*24*time.Hour))
	assert.NoError(t, engine.Start(shortTest(), ModeStandard))
}

func TestPracticeRequiresPriorStandardCompletion(t *testing.T) {
	engine, clock, _ := newTestEngine(NewMemoryStore())

	err := engine.Start(shortTest(), ModePractice)
	assert.ErrorIs(t, err, ErrPracticeLocked)
	assert.Equal(t, PhaseIdle, engine.Phase())

	// Practice bypasses the cooldown once any standard completion exists.
	engine2, _, _ := newTestEngine(NewMemoryStore())
	engine2.state.RecordTestScore("test-1", 70, clock.Now().Add(-time.Hour))
	assert.NoError(t, engine2.Start(shortTest(), ModePractice))
}

func TestSubmitTranslatesAnswersToOriginalOrder(t *testing.T) {
	engine, _, submitter := newTestEngine(NewMemoryStore())
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	answerAllCorrect(t, engine, test)

	result, err := engine.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, submitter.requests, 1)
	sent := submitter.requests[0]
	assert.Equal(t, "test-1", sent.TestID)
	require.Len(t, sent.Answers, 2)
	for i, q := range test.Questions {
		assert.Equal(t, q.CorrectOption, sent.Answers[i], "answer for original question %d", i)
	}

	assert.Equal(t, 100.0, result.Score)
	assert.False(t, result.QueuedOffline)
	assert.Equal(t, PhaseIdle, engine.Phase())
}

func TestUnansweredQuestionsSubmitAsSkipped(t *testing.T) {
	engine, _, submitter := newTestEngine(NewMemoryStore())

	require.NoError(t, engine.Start(shortTest(), ModeStandard))
	_, err := engine.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, submitter.requests, 1)
	assert.Equal(t, []int{-1, -1}, submitter.requests[0].Answers)
}

func TestStandardSuccessRecordsCompletionStreakAndBadges(t *testing.T) {
	kv := NewMemoryStore()
	engine, clock, _ := newTestEngine(kv)
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	answerAllCorrect(t, engine, test)

	result, err := engine.Submit(context.Background())
	require.NoError(t, err)

	state := NewDeviceState(kv)
	scores := state.TestScores()
	require.Contains(t, scores, "test-1")
	assert.Equal(t, 100.0, scores["test-1"].Score)
	assert.Equal(t, clock.Now(), scores["test-1"].CompletedAt)

	streak := state.Streak()
	assert.Equal(t, 1, streak.Count)
	assert.Equal(t, 1, streak.LastWeek)

	// Server reported a fast flawless 100%.
	assert.Contains(t, result.Badges, "accuracy-ace")
	assert.Contains(t, result.Badges, "flawless")
	assert.Contains(t, result.Badges, "speed-runner")
	assert.Equal(t, result.Badges, state.Badges("test-1"))

	require.Len(t, state.Attempts("test-1"), 1)
	require.Len(t, state.Analytics("test-1"), 1)

	// The in-progress snapshot is gone.
	_, ok := state.LoadActiveState()
	assert.False(t, ok)
}

func TestStreakAdvancesOnSequentialWeeksOnly(t *testing.T) {
	kv := NewMemoryStore()
	state := NewDeviceState(kv)

	for week := 1; week <= 4; week++ {
		engine, clock, _ := newTestEngine(kv)
		test := shortTest()
		test.ID = "test-w" + string(rune('0'+week))
		test.Week = week
		clock.Advance(time.Duration(week) * 24 * time.Hour)

		require.NoError(t, engine.Start(test, ModeStandard))
		_, err := engine.Submit(context.Background())
		require.NoError(t, err)
	}

	streak := state.Streak()
	assert.Equal(t, 4, streak.Count)
	assert.Equal(t, 4, streak.LastWeek)
	assert.Contains(t, state.Badges("test-w4"), "streak-4")

	// A gap resets the streak to 1.
	engine, _, _ := newTestEngine(kv)
	test := shortTest()
	test.ID = "test-w9"
	test.Week = 9
	require.NoError(t, engine.Start(test, ModeStandard))
	_, err := engine.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak().Count)
}

func TestCountdownExpiryAutoSubmitsAndQueuesOnNetworkFailure(t *testing.T) {
	kv := NewMemoryStore()
	engine, _, submitter := newTestEngine(kv)
	submitter.err = errors.New("connection refused")
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	require.NoError(t, engine.SelectAnswer(0, 0))

	ctx := context.Background()
	var result *Result
	for i := 0; i < 60; i++ {
		var err error
		result, err = engine.HandleTick(ctx)
		require.NoError(t, err)
		if result != nil {
			break
		}
	}

	require.NotNil(t, result, "countdown expiry must complete the attempt")
	assert.True(t, result.AutoSubmitted)
	assert.True(t, result.QueuedOffline)
	assert.Equal(t, PhaseIdle, engine.Phase())
	assert.Equal(t, 1, engine.OfflineCount())

	// The session is cleared as if the submission had succeeded.
	_, ok := NewDeviceState(kv).LoadActiveState()
	assert.False(t, ok)
}

func TestThreeFocusLossesTriggerExactlyOneAutoSubmit(t *testing.T) {
	engine, _, submitter := newTestEngine(NewMemoryStore())
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	ctx := context.Background()

	result, err := engine.ReportFocusLost(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = engine.ReportFocusLost(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = engine.ReportFocusLost(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.AutoSubmitted)
	require.Len(t, submitter.requests, 1)

	// A fourth event after the submission must not double-fire.
	result, err = engine.ReportFocusLost(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Len(t, submitter.requests, 1)
}

func TestPracticeModeIgnoresFocusLoss(t *testing.T) {
	kv := NewMemoryStore()
	engine, clock, submitter := newTestEngine(kv)
	engine.state.RecordTestScore("test-1", 70, clock.Now().Add(-time.Hour))

	require.NoError(t, engine.Start(shortTest(), ModePractice))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := engine.ReportFocusLost(ctx)
		require.NoError(t, err)
		assert.Nil(t, result)
	}
	assert.Equal(t, PhaseActive, engine.Phase())
	assert.Empty(t, submitter.requests)
}

func TestPracticeCompletionScoresLocallyAndPersistsReveal(t *testing.T) {
	kv := NewMemoryStore()
	engine, clock, submitter := newTestEngine(kv)
	state := NewDeviceState(kv)
	state.RecordTestScore("test-1", 60, clock.Now().Add(-time.Hour))
	test := shortTest()

	require.NoError(t, engine.Start(test, ModePractice))
	answerAllCorrect(t, engine, test)

	result, err := engine.Submit(context.Background())
	require.NoError(t, err)

	// No network call in practice mode.
	assert.Empty(t, submitter.requests)
	assert.Equal(t, 100.0, result.Score)
	require.Len(t, result.Reveal, 2)
	assert.True(t, result.Reveal[0].Correct)
	assert.Equal(t, "because", result.Reveal[0].Explanation)
	assert.Equal(t, result.Reveal, state.PracticeReveal("test-1"))

	// Practice never advances the completion marker or streak.
	assert.Equal(t, 60.0, state.TestScores()["test-1"].Score)
	assert.Equal(t, 0, state.Streak().Count)
	assert.Equal(t, PhaseIdle, engine.Phase())
}

func TestServerRejectionKeepsSessionActive(t *testing.T) {
	engine, _, submitter := newTestEngine(NewMemoryStore())
	submitter.err = &RejectedError{StatusCode: 422, Message: "answer array does not match question count"}

	require.NoError(t, engine.Start(shortTest(), ModeStandard))
	require.NoError(t, engine.SelectAnswer(0, 1))

	result, err := engine.Submit(context.Background())
	assert.Nil(t, result)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 422, rejected.StatusCode)

	// The learner can retry: session survives with answers intact.
	assert.Equal(t, PhaseActive, engine.Phase())
	assert.Equal(t, map[int]int{0: 1}, engine.Answers())
	assert.Equal(t, 0, engine.OfflineCount())
}

func TestResumeRestoresSessionAndRecomputesRemaining(t *testing.T) {
	kv := NewMemoryStore()
	engine, clock, _ := newTestEngine(kv)
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	require.NoError(t, engine.SelectAnswer(1, 0))
	_, err := engine.ReportFocusLost(context.Background())
	require.NoError(t, err)
	firstPerm := engine.perm

	// Simulate a process restart 20 wall-clock seconds later.
	restarted := NewEngine(Deps{
		Clock:     clock,
		State:     NewDeviceState(kv),
		Submitter: &fakeSubmitter{},
		RNG:       rand.New(rand.NewSource(99)),
		Log:       zerolog.Nop(),
	})
	clock.Advance(20 * time.Second)

	require.NoError(t, restarted.Start(test, ModeStandard))
	assert.Equal(t, firstPerm, restarted.perm, "saved permutation is reused verbatim")
	assert.Equal(t, map[int]int{1: 0}, restarted.Answers())
	assert.Equal(t, 1, restarted.FocusLossCount())
	assert.Equal(t, 40, restarted.Remaining(), "remaining time comes from wall clock")
}

func TestResumeDiscardsPermutationWhenTestEdited(t *testing.T) {
	kv := NewMemoryStore()
	engine, clock, _ := newTestEngine(kv)
	test := shortTest()

	require.NoError(t, engine.Start(test, ModeStandard))
	require.NoError(t, engine.SelectAnswer(0, 0))

	edited := shortTest()
	edited.Questions = append(edited.Questions, Question{
		Prompt: "third", Options: []string{"a", "b", "c"}, CorrectOption: 2,
	})

	restarted := NewEngine(Deps{
		Clock:     clock,
		State:     NewDeviceState(kv),
		Submitter: &fakeSubmitter{},
		RNG:       rand.New(rand.NewSource(5)),
		Log:       zerolog.Nop(),
	})
	require.NoError(t, restarted.Start(edited, ModeStandard))

	assert.Len(t, restarted.Questions(), 3)
	assert.Empty(t, restarted.Answers(), "stale answers are not carried into a fresh shuffle")
	assert.Equal(t, 60, restarted.Remaining())
}

func TestAbandonClearsSession(t *testing.T) {
	kv := NewMemoryStore()
	engine, _, _ := newTestEngine(kv)

	require.NoError(t, engine.Start(shortTest(), ModeStandard))
	require.NoError(t, engine.Abandon())

	assert.Equal(t, PhaseIdle, engine.Phase())
	_, ok := NewDeviceState(kv).LoadActiveState()
	assert.False(t, ok)

	assert.ErrorIs(t, engine.Abandon(), ErrNotActive)
	_, err := engine.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestTickAccruesTimeToFocusedQuestion(t *testing.T) {
	engine, _, _ := newTestEngine(NewMemoryStore())

	require.NoError(t, engine.Start(shortTest(), ModeStandard))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := engine.HandleTick(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, engine.FocusQuestion(1))
	for i := 0; i < 2; i++ {
		_, err := engine.HandleTick(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{3, 2}, engine.perQuestionTime)
	assert.Equal(t, 55, engine.Remaining())
}
