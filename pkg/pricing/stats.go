package pricing

import "sync"

const (
	statSuccess = "success"
	statFailure = "failure"
	statCache   = "cache"
)

// CallStats counts pricing lookups for one service and region
type CallStats struct {
	Success int
	Failure int
	Cache   int
}

// Total returns the number of API calls made
func (s CallStats) Total() int {
	return s.Success + s.Failure
}

// SuccessRate returns the percentage of API calls that succeeded
func (s CallStats) SuccessRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total()) * 100.0
}

// Stats tracks pricing API calls by service and region
type Stats struct {
	mu    sync.RWMutex
	calls map[string]map[string]*CallStats // service -> region
}

func newStats() *Stats {
	return &Stats{calls: make(map[string]map[string]*CallStats)}
}

func (s *Stats) record(service, region, statType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.calls[service]; !exists {
		s.calls[service] = make(map[string]*CallStats)
	}
	stats, exists := s.calls[service][region]
	if !exists {
		stats = &CallStats{}
		s.calls[service][region] = stats
	}

	switch statType {
	case statSuccess:
		stats.Success++
	case statFailure:
		stats.Failure++
	case statCache:
		stats.Cache++
	}
}

// Snapshot returns a copy of the current statistics
func (s *Stats) Snapshot() map[string]map[string]CallStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statsCopy := make(map[string]map[string]CallStats, len(s.calls))
	for service, regions := range s.calls {
		statsCopy[service] = make(map[string]CallStats, len(regions))
		for region, stats := range regions {
			statsCopy[service][region] = *stats
		}
	}
	return statsCopy
}
