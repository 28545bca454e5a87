package models

import "time"

// UsageRecord is one LM invocation's accounting row.
type UsageRecord struct {
	ID               int64
	User             string
	Chat             string
	Model            string
	Provider         string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	QuerySize        int
	ResponseSize     int
	Cost             float64
	LatencyMS        int64
	Streaming        bool
	Timestamp        time.Time
}
