package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a learner's login session.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// TestPayloadKey returns the cache key for a published test's learner payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestAnswerKey returns the cache key for a test's answer key and scoring params.
func (r *CacheKeyStruct) TestAnswerKey(testID string) string {
	return fmt.Sprintf("test:%s:key", testID)
}

// PublishedTestsKey returns the cache key for the set of published test IDs.
func (r *CacheKeyStruct) PublishedTestsKey() string {
	return "tests:published"
}

// SubmissionMonitorChannel returns the Redis PubSub channel for graded
// submissions of one test, consumed by the admin live monitor.
func (r *CacheKeyStruct) SubmissionMonitorChannel(testID string) string {
	return fmt.Sprintf("test:%s:monitor", testID)
}

var CacheKey = NewCacheKeyStruct()
