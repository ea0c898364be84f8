package pipeline

import "github.com/maclay/research-assistant/backend/internal/models"

// Sink receives stage progress updates. Delivery is best-effort telemetry:
// implementations must swallow their own failures, and the pipeline never
// checks whether a notification arrived.
type Sink interface {
	Notify(stage string, status models.StageStatus, progress int, message string)
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) Notify(string, models.StageStatus, int, string) {}
