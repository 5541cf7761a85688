package attempt

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Phase of the attempt state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Mode of an attempt.
type Mode string

const (
	// ModeStandard is a scored attempt graded by the server.
	ModeStandard Mode = "standard"
	// ModePractice is a local replay of a previously completed test,
	// scored and revealed entirely on-device.
	ModePractice Mode = "practice"
)

const (
	// DefaultCooldown blocks standard re-attempts of a completed test.
	DefaultCooldown = 7 * 24 * time.Hour

	autosaveInterval = 5 * time.Second
	focusLossLimit   = 3
)

var (
	ErrNotIdle        = errors.New("an attempt is already in progress")
	ErrNotActive      = errors.New("no active attempt")
	ErrCooldownActive = errors.New("test completed recently, retake is on cooldown")
	ErrPracticeLocked = errors.New("practice mode requires a completed standard attempt")
	ErrBadQuestion    = errors.New("question index out of range")
	ErrBadOption      = errors.New("option index out of range")
)

// Result is what the host shows the learner after an attempt completes.
type Result struct {
	Score          float64
	CorrectAnswers int
	TotalQuestions int
	TimeSpent      int
	AutoSubmitted  bool
	QueuedOffline  bool
	Badges         []string
	Reveal         []RevealItem
}

// Deps are the engine's constructor dependencies. Zero-valued optional
// fields (Clock, RNG, Cooldown) get sensible defaults.
type Deps struct {
	Clock     Clock
	State     *DeviceState
	Submitter Submitter
	RNG       *rand.Rand
	Log       zerolog.Logger
	Cooldown  time.Duration
}

// Engine is the attempt session state machine: Idle → Active → Submitting
// → Idle. One engine serves one learner device; all operations are
// serialized by an internal mutex, which also freezes ticks while a
// submission is in flight.
type Engine struct {
	mu        sync.Mutex
	clock     Clock
	state     *DeviceState
	submitter Submitter
	queue     *OfflineQueue
	rng       *rand.Rand
	log       zerolog.Logger
	cooldown  time.Duration

	phase           Phase
	mode            Mode
	test            *Test
	perm            Permutation
	questions       []RandomizedQuestion
	answers         map[int]int
	startedAt       time.Time
	remaining       int
	focusLost       int
	currentQuestion int
	perQuestionTime []int
	lastSave        time.Time
}

// NewEngine creates an idle engine.
func NewEngine(deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.RNG == nil {
		deps.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Cooldown == 0 {
		deps.Cooldown = DefaultCooldown
	}
	log := deps.Log.With().Str("component", "attempt_engine").Logger()
	return &Engine{
		clock:     deps.Clock,
		state:     deps.State,
		submitter: deps.Submitter,
		queue:     NewOfflineQueue(deps.State, deps.Submitter, deps.Log),
		rng:       deps.RNG,
		log:       log,
		cooldown:  deps.Cooldown,
		phase:     PhaseIdle,
	}
}

// Phase returns the current state machine phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Mode returns the current attempt's mode; meaningless while Idle.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Questions returns the randomized question view of the active attempt.
func (e *Engine) Questions() []RandomizedQuestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questions
}

// Remaining returns the seconds left on the countdown.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// FocusLossCount returns how many focus-lost events have accumulated.
func (e *Engine) FocusLossCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focusLost
}

// Answers returns a copy of the answer map (displayed indices).
func (e *Engine) Answers() map[int]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]int, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

// Start begins an attempt, resuming a persisted in-progress session for the
// same test and mode when its permutation still matches the test's shape.
// Standard mode is refused during the completion cooldown; practice mode
// requires at least one prior standard completion but bypasses the cooldown.
func (e *Engine) Start(test *Test, mode Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseIdle {
		return ErrNotIdle
	}

	now := e.clock.Now()
	scores := e.state.TestScores()
	switch mode {
	case ModeStandard:
		if sc, ok := scores[test.ID]; ok && now.Sub(sc.CompletedAt) < e.cooldown {
			return ErrCooldownActive
		}
	case ModePractice:
		if _, ok := scores[test.ID]; !ok {
			return ErrPracticeLocked
		}
	}

	e.test = test
	e.mode = mode
	e.answers = map[int]int{}
	e.focusLost = 0
	e.currentQuestion = 0
	e.startedAt = now
	e.perQuestionTime = make([]int, len(test.Questions))

	var savedPerm *Permutation
	if saved, ok := e.state.LoadActiveState(); ok && saved.TestID == test.ID && saved.Mode == mode {
		savedPerm = &saved.Perm
		if saved.Perm.Matches(test) {
			if saved.Answers != nil {
				e.answers = saved.Answers
			}
			e.focusLost = saved.FocusLost
			e.currentQuestion = saved.CurrentQuestion
			e.startedAt = saved.StartedAt
			if len(saved.PerQuestionTime) == len(test.Questions) {
				e.perQuestionTime = saved.PerQuestionTime
			}
		}
	}

	e.perm = ResumeOrShuffle(e.rng, test, savedPerm)
	e.questions = Randomize(test, e.perm)

	// Remaining time comes from elapsed wall clock, never from a stale
	// saved countdown value.
	limit := test.TimeLimitMinutes * 60
	elapsed := int(now.Sub(e.startedAt).Seconds())
	e.remaining = limit - elapsed
	if e.remaining < 0 {
		e.remaining = 0
	}

	e.phase = PhaseActive
	e.persist(now)

	e.log.Info().
		Str("test_id", test.ID).
		Str("mode", string(mode)).
		Int("remaining", e.remaining).
		Msg("Attempt started")
	return nil
}

// SelectAnswer records the learner's choice for a displayed question and
// marks that question as the one accruing per-question time.
func (e *Engine) SelectAnswer(displayedQuestion, displayedOption int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return ErrNotActive
	}
	if displayedQuestion < 0 || displayedQuestion >= len(e.questions) {
		return ErrBadQuestion
	}
	if displayedOption < 0 || displayedOption >= len(e.questions[displayedQuestion].Options) {
		return ErrBadOption
	}

	e.answers[displayedQuestion] = displayedOption
	e.currentQuestion = displayedQuestion
	e.persist(e.clock.Now())
	return nil
}

// FocusQuestion marks which displayed question accrues per-question time.
func (e *Engine) FocusQuestion(displayedQuestion int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return ErrNotActive
	}
	if displayedQuestion < 0 || displayedQuestion >= len(e.questions) {
		return ErrBadQuestion
	}
	e.currentQuestion = displayedQuestion
	return nil
}

// HandleTick advances the countdown by one second. It credits the
// focused question's time, autosaves at least every five seconds, and
// auto-submits when the countdown reaches zero. Returns a non-nil Result
// only when the tick completed the attempt.
func (e *Engine) HandleTick(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return nil, nil
	}

	now := e.clock.Now()
	if e.remaining > 0 {
		e.remaining--
	}
	if e.currentQuestion < len(e.perQuestionTime) {
		e.perQuestionTime[e.currentQuestion]++
	}

	if e.remaining <= 0 {
		e.log.Info().Str("test_id", e.test.ID).Msg("Countdown expired, auto-submitting")
		return e.beginSubmit(ctx, true)
	}

	if now.Sub(e.lastSave) >= autosaveInterval {
		e.persist(now)
	}
	return nil, nil
}

// ReportFocusLost records one focus-lost event. In standard mode the third
// event auto-submits the attempt; practice mode ignores the signal
// entirely. This counter is client-observed only; the server never sees
// or enforces it.
func (e *Engine) ReportFocusLost(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive || e.mode != ModeStandard {
		return nil, nil
	}

	e.focusLost++
	e.persist(e.clock.Now())
	e.log.Warn().Int("count", e.focusLost).Str("test_id", e.test.ID).Msg("Focus lost")

	if e.focusLost >= focusLossLimit {
		return e.beginSubmit(ctx, true)
	}
	return nil, nil
}

// Submit finishes the attempt on the learner's request.
func (e *Engine) Submit(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return nil, ErrNotActive
	}
	return e.beginSubmit(ctx, false)
}

// Abandon discards the active attempt without scoring it.
func (e *Engine) Abandon() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return ErrNotActive
	}
	e.log.Info().Str("test_id", e.test.ID).Msg("Attempt abandoned")
	e.reset()
	return nil
}

// DrainOfflineQueue retries queued submissions, finishing streak, badge
// and analytics bookkeeping for each one the server accepts. Call once per
// application load, after a valid auth token is available.
func (e *Engine) DrainOfflineQueue(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.queue.Drain(ctx, func(entry OfflineEntry, result *SubmitResult) {
		local := Score(entry.Test.Questions, entry.Request.Answers, entry.Test.MarksPerQuestion, entry.Test.NegativeMarking)
		e.finalizeStandard(&entry.Test, result, local, entry.PerQuestionTime, entry.AutoSubmitted)
	})
}

// OfflineCount reports how many submissions are waiting for connectivity.
func (e *Engine) OfflineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// beginSubmit moves Active → Submitting and runs the completion path.
// Caller holds the mutex, which guarantees a single trigger: a manual
// submit, a timer expiry and a focus-loss strike cannot double-fire.
func (e *Engine) beginSubmit(ctx context.Context, autoSubmitted bool) (*Result, error) {
	e.phase = PhaseSubmitting

	limit := e.test.TimeLimitMinutes * 60
	timeSpent := limit - e.remaining

	// Translate displayed answers back to the canonical question/option
	// order; -1 marks a skipped question.
	answers := make([]int, len(e.test.Questions))
	for i := range answers {
		answers[i] = -1
	}
	for displayed, chosen := range e.answers {
		q := e.questions[displayed]
		answers[q.OriginalIndex] = q.OptionMap[chosen]
	}

	local := Score(e.test.Questions, answers, e.test.MarksPerQuestion, e.test.NegativeMarking)

	if e.mode == ModePractice {
		result := e.finishPractice(answers, local, timeSpent, autoSubmitted)
		e.reset()
		return result, nil
	}

	req := &SubmitRequest{TestID: e.test.ID, Answers: answers, TimeSpent: timeSpent}
	serverResult, err := e.submitter.Submit(ctx, req)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			// The server refused the payload; keep the session alive so
			// the learner can correct course and retry.
			e.log.Warn().Int("status", rejected.StatusCode).Str("message", rejected.Message).Msg("Submission rejected")
			e.phase = PhaseActive
			return nil, err
		}

		e.queue.Enqueue(OfflineEntry{
			Request:         *req,
			Test:            *e.test,
			PerQuestionTime: append([]int(nil), e.perQuestionTime...),
			AutoSubmitted:   autoSubmitted,
			QueuedAt:        e.clock.Now(),
		})
		result := &Result{
			Score:          local.Percentage,
			CorrectAnswers: len(local.Correct),
			TotalQuestions: len(e.test.Questions),
			TimeSpent:      timeSpent,
			AutoSubmitted:  autoSubmitted,
			QueuedOffline:  true,
		}
		e.reset()
		return result, nil
	}

	badges := e.finalizeStandard(e.test, serverResult, local, e.perQuestionTime, autoSubmitted)
	result := &Result{
		Score:          serverResult.Score,
		CorrectAnswers: serverResult.CorrectAnswers,
		TotalQuestions: serverResult.TotalQuestions,
		TimeSpent:      timeSpent,
		AutoSubmitted:  autoSubmitted,
		Badges:         badges,
	}
	e.reset()
	return result, nil
}

// finishPractice grades locally and persists reveal data for review.
// Practice completions never touch the streak, badge or completion
// records; they are review-only.
func (e *Engine) finishPractice(answers []int, local ScoreResult, timeSpent int, autoSubmitted bool) *Result {
	now := e.clock.Now()

	reveal := make([]RevealItem, len(e.test.Questions))
	for i, q := range e.test.Questions {
		reveal[i] = RevealItem{
			QuestionIndex: i,
			Chosen:        answers[i],
			CorrectOption: q.CorrectOption,
			Correct:       answers[i] == q.CorrectOption,
			Explanation:   q.Explanation,
		}
	}
	e.state.SavePracticeReveal(e.test.ID, reveal)

	e.state.AppendAttempt(AttemptRecord{
		TestID:         e.test.ID,
		Score:          local.Percentage,
		CorrectAnswers: len(local.Correct),
		TotalQuestions: len(e.test.Questions),
		TimeSpent:      timeSpent,
		AutoSubmitted:  autoSubmitted,
		Practice:       true,
		CompletedAt:    now,
	})
	e.state.AppendAnalytics(AnalyticsEntry{
		TestID:          e.test.ID,
		Correct:         local.Correct,
		Wrong:           local.Wrong,
		Skipped:         local.Skipped,
		PerQuestionTime: append([]int(nil), e.perQuestionTime...),
		RecordedAt:      now,
	})

	return &Result{
		Score:          local.Percentage,
		CorrectAnswers: len(local.Correct),
		TotalQuestions: len(e.test.Questions),
		TimeSpent:      timeSpent,
		AutoSubmitted:  autoSubmitted,
		Reveal:         reveal,
	}
}

// finalizeStandard books a server-accepted completion: completion marker,
// attempt history, analytics detail, streak and badges. The server's score
// is authoritative; the local ScoreResult only feeds the per-question
// analytics the server response does not carry.
func (e *Engine) finalizeStandard(test *Test, server *SubmitResult, local ScoreResult, perQuestionTime []int, autoSubmitted bool) []string {
	now := e.clock.Now()

	e.state.RecordTestScore(test.ID, server.Score, now)
	e.state.AppendAttempt(AttemptRecord{
		TestID:         test.ID,
		Score:          server.Score,
		CorrectAnswers: server.CorrectAnswers,
		TotalQuestions: server.TotalQuestions,
		TimeSpent:      server.TimeSpent,
		AutoSubmitted:  autoSubmitted,
		CompletedAt:    now,
	})
	e.state.AppendAnalytics(AnalyticsEntry{
		TestID:          test.ID,
		Correct:         local.Correct,
		Wrong:           local.Wrong,
		Skipped:         local.Skipped,
		PerQuestionTime: append([]int(nil), perQuestionTime...),
		RecordedAt:      now,
	})

	streak := e.state.Streak()
	switch {
	case test.Week == streak.LastWeek+1:
		streak.Count++
		streak.LastWeek = test.Week
		e.state.SaveStreak(streak)
	case test.Week > streak.LastWeek:
		streak.Count = 1
		streak.LastWeek = test.Week
		e.state.SaveStreak(streak)
	}

	limit := test.TimeLimitMinutes * 60
	timeRatio := 1.0
	if limit > 0 {
		timeRatio = float64(server.TimeSpent) / float64(limit)
	}
	zeroMistakes := server.TotalQuestions > 0 && server.CorrectAnswers == server.TotalQuestions

	badges := EvaluateBadges(server.Score, timeRatio, zeroMistakes, streak.Count)
	return e.state.AddBadges(test.ID, badges)
}

// persist snapshots the in-progress session.
func (e *Engine) persist(now time.Time) {
	e.state.SaveActiveState(&ActiveState{
		TestID:          e.test.ID,
		Mode:            e.mode,
		Test:            *e.test,
		Perm:            e.perm,
		Answers:         e.answers,
		StartedAt:       e.startedAt,
		FocusLost:       e.focusLost,
		CurrentQuestion: e.currentQuestion,
		PerQuestionTime: e.perQuestionTime,
		SavedAt:         now,
	})
	e.lastSave = now
}

// reset returns the engine to Idle and clears the persisted session.
func (e *Engine) reset() {
	e.phase = PhaseIdle
	e.mode = ""
	e.test = nil
	e.perm = Permutation{}
	e.questions = nil
	e.answers = nil
	e.focusLost = 0
	e.currentQuestion = 0
	e.perQuestionTime = nil
	e.state.ClearActiveState()
}
