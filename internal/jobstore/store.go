// Package jobstore tracks async batch jobs and caches assembled archives.
// State is process-local and ephemeral: entries expire after a fixed TTL and
// are evicted lazily on the next store mutation.
package jobstore

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Status is the lifecycle state of one job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Result is an assembled archive plus the counts reported in response headers.
type Result struct {
	Zip        []byte
	Filename   string
	Total      int
	Downloaded int
	Failed     int
}

// Job is one unit of background batch work. The background worker is the
// sole writer after creation; everything else reads copies.
type Job struct {
	ID        string
	Status    Status
	Result    *Result
	Error     string
	CreatedAt time.Time
}

// CacheKey addresses a cached archive by request parameters. This is correct
// only because upstream renditions are immutable for a given parameter tuple.
type CacheKey struct {
	OrderID string
	Format  string
	Quality int
	Preview bool
	DevMode bool
}

type cacheEntry struct {
	result    *Result
	createdAt time.Time
}

// Store holds jobs and the result cache behind one mutex.
type Store struct {
	mu           sync.Mutex
	clk          clock.Clock
	ttl          time.Duration
	cacheEnabled bool
	jobs         map[string]*Job
	cache        map[CacheKey]cacheEntry
}

// New creates a store. cacheEnabled false turns the result cache off
// entirely (test and verification environments).
func New(ttl time.Duration, cacheEnabled bool, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		clk:          clk,
		ttl:          ttl,
		cacheEnabled: cacheEnabled,
		jobs:         make(map[string]*Job),
		cache:        make(map[CacheKey]cacheEntry),
	}
}

// Create registers a new processing job and returns its identifier. The job
// is visible to pollers before any background work starts.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	id := uuid.NewString()
	s.jobs[id] = &Job{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: s.clk.Now(),
	}
	return id
}

// Get returns a copy of the job. Expired or unknown identifiers report not
// found.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || s.expired(job.CreatedAt) {
		return Job{}, false
	}
	return *job, true
}

// Complete transitions a processing job to its terminal success state.
func (s *Store) Complete(id string, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	job, ok := s.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	job.Status = StatusComplete
	job.Result = res
}

// Fail transitions a processing job to its terminal error state.
func (s *Store) Fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	job, ok := s.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	job.Status = StatusError
	job.Error = message
}

// CachedResult returns a previously assembled archive for the same request
// parameters, if the cache is enabled and the entry is still fresh.
func (s *Store) CachedResult(key CacheKey) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheEnabled {
		return nil, false
	}
	entry, ok := s.cache[key]
	if !ok || s.expired(entry.createdAt) {
		return nil, false
	}
	return entry.result, true
}

// StoreResult caches an assembled archive under its request parameters.
func (s *Store) StoreResult(key CacheKey, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheEnabled {
		return
	}
	s.evictLocked()
	s.cache[key] = cacheEntry{result: res, createdAt: s.clk.Now()}
}

func (s *Store) expired(createdAt time.Time) bool {
	return s.clk.Now().Sub(createdAt) > s.ttl
}

// evictLocked drops entries past their TTL. Called with the mutex held on
// every mutation; no background sweep is needed.
func (s *Store) evictLocked() {
	for id, job := range s.jobs {
		if s.expired(job.CreatedAt) {
			delete(s.jobs, id)
		}
	}
	for key, entry := range s.cache {
		if s.expired(entry.createdAt) {
			delete(s.cache, key)
		}
	}
}
