package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/xsearch/internal/db/memory"
)

var errBackend = errors.New("connection reset")

// failingStore fails every operation; Scan failures can be toggled off.
type failingStore struct {
	scanOK   bool
	delCalls int
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, errBackend }

func (f *failingStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errBackend
}

func (f *failingStore) Scan(context.Context, string) ([]string, error) {
	if f.scanOK {
		return nil, nil
	}
	return nil, errBackend
}

func (f *failingStore) Del(context.Context, ...string) (int, error) {
	f.delCalls++
	return 0, errBackend
}

// scanFailingStore is a working memory store whose Scan times out.
type scanFailingStore struct {
	*memory.Store
}

func (s scanFailingStore) Scan(context.Context, string) ([]string, error) {
	return nil, errors.New("i/o timeout")
}
