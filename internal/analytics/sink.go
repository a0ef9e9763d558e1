package analytics

import (
	"context"
	"time"

	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/worker"
)

// NewSink picks the sink cfg describes: nothing when disabled, a log line
// when no endpoint is set, otherwise HTTP delivery
func NewSink(cfg model.AnalyticsConfig, limiter *worker.Limiter, log logger.Logger) (Sink, error) {
	switch {
	case !cfg.Enabled:
		return NopSink{}, nil
	case cfg.Endpoint == "":
		return NewLogSink(log), nil
	default:
		return NewHTTPSink(cfg, limiter)
	}
}

// Forward sends the event for a result. Delivery errors are logged, not returned,
// so analytics can never fail an assessment.
func Forward(ctx context.Context, sink Sink, result model.CaseStrengthResult, log logger.Logger) {
	event := NewEvent(result, time.Now())
	if err := sink.Send(ctx, event); err != nil {
		log.Warnf("analytics: %v", err)
		return
	}
	log.Debugf("analytics: sent %s (%s, score %d)", event.EventID, event.NoticeType, event.Score)
}
