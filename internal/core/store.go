package core

// store.go keeps finished runs in memory so their results can be previewed,
// downloaded and sunk after the request that produced them returns.
// Results expire after a TTL and the store holds at most a fixed number of
// them; when full, the oldest result is evicted.

import (
	"bytes"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/JonMunkholm/prism/internal/export"
	"github.com/JonMunkholm/prism/internal/ingest"
	"github.com/JonMunkholm/prism/internal/pipeline"
)

// RunResult is a finished run.
type RunResult struct {
	ID          string           `json:"id"`
	FileName    string           `json:"fileName"`
	InputFormat ingest.Format    `json:"inputFormat"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Report      *pipeline.Report `json:"report"`

	mu      sync.Mutex
	exports map[exportKey][]byte
}

type exportKey struct {
	format export.Format
	index  bool
}

// Export renders the final table in format f. Rendered bytes are cached
// per format so repeated downloads do not re-encode the table.
func (r *RunResult) Export(f export.Format, opts export.Options) ([]byte, error) {
	key := exportKey{format: f, index: opts.IncludeIndex}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.exports[key]; ok {
		return b, nil
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, r.Report.Final, f, opts); err != nil {
		return nil, err
	}
	if r.exports == nil {
		r.exports = make(map[exportKey][]byte)
	}
	r.exports[key] = buf.Bytes()
	return buf.Bytes(), nil
}

// ResultStore is a TTL-bounded in-memory store of run results keyed by ID.
type ResultStore struct {
	results cmap.ConcurrentMap[string, *RunResult]
	ttl     time.Duration
	max     int

	putMu sync.Mutex // serializes eviction
	now   func() time.Time
}

// NewResultStore returns a store keeping each result for ttl and at most
// max results at once.
func NewResultStore(ttl time.Duration, max int) *ResultStore {
	return &ResultStore{
		results: cmap.New[*RunResult](),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// Put stamps r with its creation and expiry times and stores it, evicting
// the oldest result when the store is full.
func (s *ResultStore) Put(r *RunResult) {
	s.putMu.Lock()
	defer s.putMu.Unlock()

	r.CreatedAt = s.now()
	r.ExpiresAt = r.CreatedAt.Add(s.ttl)

	for s.max > 0 && s.results.Count() >= s.max {
		if !s.evictOldest() {
			break
		}
	}
	s.results.Set(r.ID, r)
}

func (s *ResultStore) evictOldest() bool {
	var oldest *RunResult
	for item := range s.results.IterBuffered() {
		if oldest == nil || item.Val.CreatedAt.Before(oldest.CreatedAt) {
			oldest = item.Val
		}
	}
	if oldest == nil {
		return false
	}
	s.results.Remove(oldest.ID)
	return true
}

// Get returns the result with the given ID. Expired results are removed
// and reported as missing.
func (s *ResultStore) Get(id string) (*RunResult, bool) {
	r, ok := s.results.Get(id)
	if !ok {
		return nil, false
	}
	if !s.now().Before(r.ExpiresAt) {
		s.results.Remove(id)
		return nil, false
	}
	return r, true
}

// Remove deletes a result.
func (s *ResultStore) Remove(id string) { s.results.Remove(id) }

// Len returns the number of stored results, expired ones included.
func (s *ResultStore) Len() int { return s.results.Count() }

// Purge removes every expired result and returns how many were removed.
func (s *ResultStore) Purge() int {
	now := s.now()
	purged := 0
	for item := range s.results.IterBuffered() {
		if !now.Before(item.Val.ExpiresAt) {
			s.results.Remove(item.Key)
			purged++
		}
	}
	return purged
}
