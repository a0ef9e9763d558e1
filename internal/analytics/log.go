package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/casestrength/internal/logger"
)

// LogSink writes each event as a JSON log line, for deployments without a collector
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink writing to log
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Send logs the event at info level
func (s *LogSink) Send(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	s.log.Infof("analytics %s", data)
	return nil
}
