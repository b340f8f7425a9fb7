package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestMillis map[string]int64
	errorCount    map[string]int64
	refreshCount  map[string]int64
	refreshFailed map[string]int64
	lastRefresh   map[string]time.Time
}

// RouteStat is one request counter line.
type RouteStat struct {
	Key         string  `json:"key"`
	Count       int64   `json:"count"`
	AvgMillis   float64 `json:"avgMillis"`
	ErrorsTotal int64   `json:"errors,omitempty"`
}

// RefreshStat reports the health of a freshness source.
type RefreshStat struct {
	Source      string    `json:"source"`
	Runs        int64     `json:"runs"`
	Failures    int64     `json:"failures"`
	LastSuccess time.Time `json:"lastSuccess,omitempty"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests  []RouteStat      `json:"requests"`
	Errors    map[string]int64 `json:"errors"`
	Refreshes []RefreshStat    `json:"refreshes"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestMillis: make(map[string]int64),
		errorCount:    make(map[string]int64),
		refreshCount:  make(map[string]int64),
		refreshFailed: make(map[string]int64),
		lastRefresh:   make(map[string]time.Time),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestMillis[key] += duration.Milliseconds()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordRefresh counts a refresh of a cached view. A nil err marks a success.
func (m *Metrics) RecordRefresh(source string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCount[source]++
	if err != nil {
		m.refreshFailed[source]++
		return
	}
	m.lastRefresh[source] = time.Now().UTC()
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Errors: map[string]int64{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, count := range m.requestCount {
		stat := RouteStat{Key: key, Count: count}
		if count > 0 {
			stat.AvgMillis = float64(m.requestMillis[key]) / float64(count)
		}
		snap.Requests = append(snap.Requests, stat)
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })

	for key, count := range m.errorCount {
		snap.Errors[key] = count
	}

	for source, runs := range m.refreshCount {
		snap.Refreshes = append(snap.Refreshes, RefreshStat{
			Source:      source,
			Runs:        runs,
			Failures:    m.refreshFailed[source],
			LastSuccess: m.lastRefresh[source],
		})
	}
	sort.Slice(snap.Refreshes, func(i, j int) bool { return snap.Refreshes[i].Source < snap.Refreshes[j].Source })
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
