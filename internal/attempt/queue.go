package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// OfflineEntry is a queued standard submission that failed to reach the
// server. It carries the full test snapshot and timing context so scoring
// can be finished in a later session without the test loaded in memory.
type OfflineEntry struct {
	Request         SubmitRequest `json:"request"`
	Test            Test          `json:"test"`
	PerQuestionTime []int         `json:"per_question_time"`
	AutoSubmitted   bool          `json:"auto_submitted"`
	QueuedAt        time.Time     `json:"queued_at"`
}

// OfflineQueue is the durable retry buffer for failed submissions.
type OfflineQueue struct {
	state     *DeviceState
	submitter Submitter
	log       zerolog.Logger
}

// NewOfflineQueue creates a queue over the device state.
func NewOfflineQueue(state *DeviceState, submitter Submitter, log zerolog.Logger) *OfflineQueue {
	return &OfflineQueue{
		state:     state,
		submitter: submitter,
		log:       log.With().Str("component", "offline_queue").Logger(),
	}
}

// Enqueue appends an entry durably.
func (q *OfflineQueue) Enqueue(entry OfflineEntry) {
	entries := q.state.LoadOfflineQueue()
	entries = append(entries, entry)
	q.state.SaveOfflineQueue(entries)
	q.log.Info().Str("test_id", entry.Request.TestID).Int("queued", len(entries)).Msg("Submission queued offline")
}

// Len reports the number of queued entries.
func (q *OfflineQueue) Len() int {
	return len(q.state.LoadOfflineQueue())
}

// Drain resubmits every queued entry in order, once. Accepted entries are
// removed and reported through onAccepted. Entries the server definitively
// rejects are dropped — replaying the identical payload cannot succeed, and
// the server deduplicates completions on its side anyway. Transport
// failures keep their entries for the next drain; there is no backoff
// beyond drain-per-application-load. Returns the number accepted.
func (q *OfflineQueue) Drain(ctx context.Context, onAccepted func(entry OfflineEntry, result *SubmitResult)) int {
	entries := q.state.LoadOfflineQueue()
	if len(entries) == 0 {
		return 0
	}

	accepted := 0
	remaining := make([]OfflineEntry, 0, len(entries))
	for _, entry := range entries {
		result, err := q.submitter.Submit(ctx, &entry.Request)
		if err != nil {
			var rejected *RejectedError
			if errors.As(err, &rejected) {
				q.log.Warn().
					Str("test_id", entry.Request.TestID).
					Int("status", rejected.StatusCode).
					Str("message", rejected.Message).
					Msg("Queued submission rejected, dropping")
				continue
			}
			q.log.Debug().Err(err).Str("test_id", entry.Request.TestID).Msg("Still offline, keeping entry")
			remaining = append(remaining, entry)
			continue
		}

		accepted++
		if onAccepted != nil {
			onAccepted(entry, result)
		}
	}

	q.state.SaveOfflineQueue(remaining)
	if accepted > 0 {
		q.log.Info().Int("accepted", accepted).Int("remaining", len(remaining)).Msg("Offline queue drained")
	}
	return accepted
}
