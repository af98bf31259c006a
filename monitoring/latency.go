// Package monitoring 记录推理延迟统计
package monitoring

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// maxSamples bounds the latency history; older samples are dropped in blocks.
const maxSamples = 1000

// LatencySample 单次推理延迟
type LatencySample struct {
	Model     string        `json:"model"`
	Latency   time.Duration `json:"latency"`
	Failed    bool          `json:"failed"`
	Timestamp time.Time     `json:"timestamp"`
}

// LatencySummary 延迟摘要
type LatencySummary struct {
	Count    int           `json:"count"`
	Failures int           `json:"failures"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
	Mean     time.Duration `json:"mean"`
	P95      time.Duration `json:"p95"`
	Latest   time.Duration `json:"latest"`
}

// LatencyTracker 推理延迟收集器
type LatencyTracker struct {
	samples []LatencySample
	lock    sync.RWMutex
	now     func() time.Time
}

// NewLatencyTracker 创建延迟收集器
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{now: time.Now}
}

// Record 记录一次推理
func (lt *LatencyTracker) Record(model string, latency time.Duration, err error) {
	lt.lock.Lock()
	defer lt.lock.Unlock()

	lt.samples = append(lt.samples, LatencySample{
		Model:     model,
		Latency:   latency,
		Failed:    err != nil,
		Timestamp: lt.now(),
	})
	if len(lt.samples) > maxSamples {
		lt.samples = lt.samples[100:]
	}
}

// Samples returns a copy of the recorded history.
func (lt *LatencyTracker) Samples() []LatencySample {
	lt.lock.RLock()
	defer lt.lock.RUnlock()
	return append([]LatencySample(nil), lt.samples...)
}

// Summary 计算延迟摘要. Failed calls count toward Failures and the latency
// figures alike, since their elapsed time is still measured.
func (lt *LatencyTracker) Summary() LatencySummary {
	samples := lt.Samples()
	if len(samples) == 0 {
		return LatencySummary{}
	}

	latencies := make([]time.Duration, len(samples))
	summary := LatencySummary{
		Count:  len(samples),
		Latest: samples[len(samples)-1].Latency,
	}
	var sum time.Duration
	for i, s := range samples {
		latencies[i] = s.Latency
		sum += s.Latency
		if s.Failed {
			summary.Failures++
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	summary.Min = latencies[0]
	summary.Max = latencies[len(latencies)-1]
	summary.Mean = sum / time.Duration(len(latencies))
	summary.P95 = percentile(latencies, 0.95)
	return summary
}

// ExportJSON 导出JSON格式
func (lt *LatencyTracker) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(lt.Summary(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(p*float64(len(sorted)) + 0.999999)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
