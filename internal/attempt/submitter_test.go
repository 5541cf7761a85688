package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSubmitterSuccess(t *testing.T) {
	var gotAuth string
	var gotBody SubmitRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/tests/submit", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"data": SubmitResult{Score: 75, TimeSpent: 42, TotalQuestions: 4, CorrectAnswers: 3},
		})
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(srv.URL, func() string { return "tok-123" }, srv.Client())
	result, err := s.Submit(context.Background(), &SubmitRequest{
		TestID:    "test-1",
		Answers:   []int{0, 1, -1, 2},
		TimeSpent: 42,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "test-1", gotBody.TestID)
	assert.Equal(t, []int{0, 1, -1, 2}, gotBody.Answers)
	assert.Equal(t, 75.0, result.Score)
	assert.Equal(t, 3, result.CorrectAnswers)
}

func TestHTTPSubmitterRejectionCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"data": nil,
			"error": map[string]string{
				"code":    "ANSWER_COUNT_MISMATCH",
				"message": "answer array does not match question count",
			},
		})
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(srv.URL, nil, srv.Client())
	_, err := s.Submit(context.Background(), &SubmitRequest{TestID: "test-1"})

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
	assert.Equal(t, "answer array does not match question count", rejected.Message)
}

func TestHTTPSubmitterServerErrorIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(srv.URL, nil, srv.Client())
	_, err := s.Submit(context.Background(), &SubmitRequest{TestID: "test-1"})

	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected), "5xx must queue for retry, not reject")
}

func TestHTTPSubmitterTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	s := NewHTTPSubmitter(srv.URL, nil, nil)
	_, err := s.Submit(context.Background(), &SubmitRequest{TestID: "test-1"})

	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected))
}
