// Package analytics forwards completed assessments to an event collector.
// Delivery never influences a result; failures are logged and dropped by callers.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/score"
)

// EventName identifies completed-assessment events at the collector
const EventName = "case_strength_calculated"

// Event is the payload recorded for each completed assessment
type Event struct {
	EventID         string           `json:"event_id"`
	Name            string           `json:"event"`
	NoticeType      model.NoticeType `json:"notice_type"`
	Score           int              `json:"score"`
	Confidence      model.Confidence `json:"confidence"`
	StrengthFactors []string         `json:"strength_factors"`
	RiskFactors     []string         `json:"risk_factors"`
	ResultBucket    model.Bucket     `json:"result_bucket"`
	Timestamp       time.Time        `json:"timestamp"`
}

// NewEvent builds the event for a result.
// The collector only distinguishes strong from everything else.
func NewEvent(result model.CaseStrengthResult, now time.Time) Event {
	bucket := model.BucketWeak
	if result.Score >= score.StrongThreshold {
		bucket = model.BucketStrong
	}

	return Event{
		EventID:         uuid.NewString(),
		Name:            EventName,
		NoticeType:      result.NoticeType,
		Score:           result.Score,
		Confidence:      result.Confidence,
		StrengthFactors: append([]string{}, result.StrengthFactors...),
		RiskFactors:     append([]string{}, result.RiskFactors...),
		ResultBucket:    bucket,
		Timestamp:       now.UTC(),
	}
}

// Sink delivers events
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// NopSink drops every event
type NopSink struct{}

// Send discards the event
func (NopSink) Send(context.Context, Event) error {
	return nil
}
