package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	ledgerCalls    map[string]int64
	ledgerDuration map[string]time.Duration
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests         map[string]int64 `json:"requests"`
	Errors           map[string]int64 `json:"errors"`
	LedgerCalls      map[string]int64 `json:"ledger_calls"`
	LedgerDurationMS map[string]int64 `json:"ledger_duration_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		ledgerCalls:    make(map[string]int64),
		ledgerDuration: make(map[string]time.Duration),
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

// RecordLedgerCall counts a remote ledger call by contract, function and outcome.
func (m *Metrics) RecordLedgerCall(contract, function, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	key := contract + "|" + function + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerCalls[key]++
	m.ledgerDuration[contract+"|"+function] += duration
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:         copyCounts(m.requestCount),
		Errors:           copyCounts(m.errorCount),
		LedgerCalls:      copyCounts(m.ledgerCalls),
		LedgerDurationMS: make(map[string]int64, len(m.ledgerDuration)),
	}
	for k, d := range m.ledgerDuration {
		snap.LedgerDurationMS[k] = d.Milliseconds()
	}
	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
