package attempt

import "time"

// Storage keys. These are stable identifiers; renaming one orphans the
// data previously written under it.
const (
	keyActiveState    = "weeklyTest.activeState"
	keyAnalytics      = "weeklyTest.analytics"
	keyBadges         = "weeklyTest.badges"
	keyStreak         = "weeklyTest.streak"
	keyOfflineQueue   = "weeklyTest.offlineSubmissions"
	keyPracticeReveal = "weeklyTest.practiceReveal"
	keyTestScores     = "testScores"
)

// ActiveState is the persisted snapshot of an in-progress attempt, written
// on every answer change and at least every five seconds, so a restart
// resumes mid-attempt. Remaining time is recomputed from StartedAt, never
// trusted from the stale snapshot.
type ActiveState struct {
	TestID          string      `json:"test_id"`
	Mode            Mode        `json:"mode"`
	Test            Test        `json:"test"`
	Perm            Permutation `json:"perm"`
	Answers         map[int]int `json:"answers"`
	StartedAt       time.Time   `json:"started_at"`
	FocusLost       int         `json:"focus_lost"`
	CurrentQuestion int         `json:"current_question"`
	PerQuestionTime []int       `json:"per_question_time"`
	SavedAt         time.Time   `json:"saved_at"`
}

// AttemptRecord is one completed attempt's outcome, append-only per test.
type AttemptRecord struct {
	TestID         string    `json:"test_id"`
	Score          float64   `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	TimeSpent      int       `json:"time_spent"`
	AutoSubmitted  bool      `json:"auto_submitted"`
	Practice       bool      `json:"practice"`
	CompletedAt    time.Time `json:"completed_at"`
}

// AnalyticsEntry carries the fine-grained detail the server response does
// not: per-question correctness and time, in original question order.
type AnalyticsEntry struct {
	TestID          string    `json:"test_id"`
	Correct         []int     `json:"correct"`
	Wrong           []int     `json:"wrong"`
	Skipped         int       `json:"skipped"`
	PerQuestionTime []int     `json:"per_question_time"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// StreakState tracks consecutive weekly completions.
type StreakState struct {
	Count    int `json:"count"`
	LastWeek int `json:"last_week"`
}

// TestScore is the quick-lookup completion marker used by the cooldown and
// practice-unlock guards.
type TestScore struct {
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// RevealItem is one question's post-practice review entry.
type RevealItem struct {
	QuestionIndex int    `json:"question_index"`
	Chosen        int    `json:"chosen"`
	CorrectOption int    `json:"correct_option"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// DeviceState wraps a Store with typed accessors for every namespace the
// engine persists. All reads degrade to empty defaults on missing or
// corrupt data.
type DeviceState struct {
	kv Store
}

// NewDeviceState creates typed storage helpers over kv.
func NewDeviceState(kv Store) *DeviceState {
	return &DeviceState{kv: kv}
}

func (d *DeviceState) LoadActiveState() (*ActiveState, bool) {
	var s ActiveState
	if !d.kv.Get(keyActiveState, &s) || s.TestID == "" {
		return nil, false
	}
	return &s, true
}

func (d *DeviceState) SaveActiveState(s *ActiveState) {
	d.kv.Set(keyActiveState, s)
}

func (d *DeviceState) ClearActiveState() {
	d.kv.Delete(keyActiveState)
}

// AppendAnalytics records one attempt's detail under its test id.
func (d *DeviceState) AppendAnalytics(entry AnalyticsEntry) {
	all := map[string][]AnalyticsEntry{}
	d.kv.Get(keyAnalytics, &all)
	all[entry.TestID] = append(all[entry.TestID], entry)
	d.kv.Set(keyAnalytics, all)
}

func (d *DeviceState) Analytics(testID string) []AnalyticsEntry {
	all := map[string][]AnalyticsEntry{}
	d.kv.Get(keyAnalytics, &all)
	return all[testID]
}

// AddBadges unions new tags into the test's badge set. Tags are only ever
// added, never removed.
func (d *DeviceState) AddBadges(testID string, tags []string) []string {
	all := map[string][]string{}
	d.kv.Get(keyBadges, &all)
	have := map[string]bool{}
	for _, t := range all[testID] {
		have[t] = true
	}
	for _, t := range tags {
		if !have[t] {
			all[testID] = append(all[testID], t)
			have[t] = true
		}
	}
	d.kv.Set(keyBadges, all)
	return all[testID]
}

func (d *DeviceState) Badges(testID string) []string {
	all := map[string][]string{}
	d.kv.Get(keyBadges, &all)
	return all[testID]
}

func (d *DeviceState) Streak() StreakState {
	var s StreakState
	d.kv.Get(keyStreak, &s)
	return s
}

func (d *DeviceState) SaveStreak(s StreakState) {
	d.kv.Set(keyStreak, s)
}

func (d *DeviceState) TestScores() map[string]TestScore {
	scores := map[string]TestScore{}
	d.kv.Get(keyTestScores, &scores)
	return scores
}

func (d *DeviceState) RecordTestScore(testID string, score float64, at time.Time) {
	scores := d.TestScores()
	scores[testID] = TestScore{Score: score, CompletedAt: at}
	d.kv.Set(keyTestScores, scores)
}

// AppendAttempt stores one completed attempt in the test's history.
func (d *DeviceState) AppendAttempt(rec AttemptRecord) {
	all := map[string][]AttemptRecord{}
	d.kv.Get(keyAnalyticsAttemptsKey(), &all)
	all[rec.TestID] = append(all[rec.TestID], rec)
	d.kv.Set(keyAnalyticsAttemptsKey(), all)
}

func (d *DeviceState) Attempts(testID string) []AttemptRecord {
	all := map[string][]AttemptRecord{}
	d.kv.Get(keyAnalyticsAttemptsKey(), &all)
	return all[testID]
}

// Attempt history rides in the analytics namespace alongside the detail
// entries, under its own sub-key.
func keyAnalyticsAttemptsKey() string { return keyAnalytics + ".attempts" }

func (d *DeviceState) SavePracticeReveal(testID string, items []RevealItem) {
	all := map[string][]RevealItem{}
	d.kv.Get(keyPracticeReveal, &all)
	all[testID] = items
	d.kv.Set(keyPracticeReveal, all)
}

func (d *DeviceState) PracticeReveal(testID string) []RevealItem {
	all := map[string][]RevealItem{}
	d.kv.Get(keyPracticeReveal, &all)
	return all[testID]
}

func (d *DeviceState) LoadOfflineQueue() []OfflineEntry {
	entries := []OfflineEntry{}
	d.kv.Get(keyOfflineQueue, &entries)
	return entries
}

func (d *DeviceState) SaveOfflineQueue(entries []OfflineEntry) {
	if len(entries) == 0 {
		d.kv.Delete(keyOfflineQueue)
		return
	}
	d.kv.Set(keyOfflineQueue, entries)
}
