package models

import "time"

// SystemMetrics is a lightweight JSON view over the Prometheus collectors.
type SystemMetrics struct {
	RequestsTotal            uint64           `json:"requestsTotal"`
	AverageRequestDurationMs float64          `json:"averageRequestDurationMs"`
	CacheHits                uint64           `json:"cacheHits"`
	CacheMisses              uint64           `json:"cacheMisses"`
	CacheHitRatio            float64          `json:"cacheHitRatio"`
	CompletionsByTier        map[RiskTier]int `json:"completionsByTier"`
	BatchRuns                uint64           `json:"batchRuns"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generatedAt"`
}
