package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PaperPayloadKey returns the cache key for a paper's taker-safe payload.
func (r *CacheKeyStruct) PaperPayloadKey(paperID string) string {
	return fmt.Sprintf("paper:%s:payload", paperID)
}

// PaperDurationKey returns the cache key for a paper's duration in minutes.
func (r *CacheKeyStruct) PaperDurationKey(paperID string) string {
	return fmt.Sprintf("paper:%s:duration", paperID)
}

// SessionDeadlineKey returns the cache key for a session's end time.
func (r *CacheKeyStruct) SessionDeadlineKey(sessionID string) string {
	return fmt.Sprintf("session:%s:deadline", sessionID)
}

// StudentLoginKey returns the cache key tracking a student's active login.
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("student:%d:login", studentID)
}

var CacheKey = NewCacheKeyStruct()
