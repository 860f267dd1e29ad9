package output

import "time"

type MetricsPort interface {
	ObserveEvaluation(kind, provider string, success bool, elapsed time.Duration)
	ObserveSession(success bool, iterations int)
	ObserveToolCall(success bool)
}

type NopMetrics struct{}

func (NopMetrics) ObserveEvaluation(string, string, bool, time.Duration) {}
func (NopMetrics) ObserveSession(bool, int)                              {}
func (NopMetrics) ObserveToolCall(bool)                                  {}
