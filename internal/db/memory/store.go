// Package memory is an in-process db.Store used by the "memory" driver and in tests.
package memory

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/xsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value    []byte
	hash     map[string]string
	expireAt time.Time
}

// Store keeps keys in a map guarded by a mutex. Expired keys are evicted lazily.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string]*entry), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// lookup returns a live entry. Caller holds mu.
func (s *Store) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil || e.hash != nil {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{value: append([]byte(nil), value...)}
	return nil
}

func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{value: append([]byte(nil), value...), expireAt: s.now().Add(ttl)}
	return nil
}

func (s *Store) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		e = &entry{value: []byte("0")}
		s.data[key] = e
	}
	if e.hash != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: errWrongType}
	}
	cur, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	cur += val
	e.value = []byte(strconv.FormatInt(cur, 10))
	return cur, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil
	}
	if nx && !e.expireAt.IsZero() {
		return nil
	}
	e.expireAt = s.now().Add(ttl)
	return nil
}

// TTL mirrors the Redis store: -1 means no expiry, a missing key is db.ErrKeyNotFound.
func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return 0, db.ErrKeyNotFound
	}
	if e.expireAt.IsZero() {
		return -1, nil
	}
	return e.expireAt.Sub(s.now()), nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range keys {
		if s.lookup(k) != nil {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) hashFor(key string) (*entry, error) {
	e := s.lookup(key)
	if e == nil {
		e = &entry{hash: make(map[string]string)}
		s.data[key] = e
	}
	if e.hash == nil {
		return nil, errWrongType
	}
	return e, nil
}

func (s *Store) HIncrBy(_ context.Context, key, field string, val int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key)
	if err != nil {
		return 0, &db.Error{Op: db.OpHIncrBy, Err: err}
	}
	var cur int64
	if raw, ok := e.hash[field]; ok {
		if cur, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, &db.Error{Op: db.OpHIncrBy, Err: err}
		}
	}
	cur += val
	e.hash[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *Store) HIncrByFloat(_ context.Context, key, field string, val float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key)
	if err != nil {
		return 0, &db.Error{Op: db.OpHIncrByFloat, Err: err}
	}
	var cur float64
	if raw, ok := e.hash[field]; ok {
		if cur, err = strconv.ParseFloat(raw, 64); err != nil {
			return 0, &db.Error{Op: db.OpHIncrByFloat, Err: err}
		}
	}
	cur += val
	e.hash[field] = strconv.FormatFloat(cur, 'f', -1, 64)
	return cur, nil
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil || e.hash == nil {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(e.hash))
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

// Scan matches keys with path.Match, which covers the glob subset used by callers.
// Keys are returned sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.data {
		if s.lookup(k) == nil {
			continue
		}
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.data {
		if s.lookup(k) != nil {
			n++
		}
	}
	return n
}
