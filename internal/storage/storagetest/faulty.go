// Package storagetest provides fault-injecting storage wrappers for tests.
package storagetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/simplrflow/service/internal/storage"
)

// ErrInjected is returned by every injected failure.
var ErrInjected = errors.New("injected storage failure")

// Faulty wraps a MemoryStorage and fails selected operations.
type Faulty struct {
	*storage.MemoryStorage

	mu          sync.Mutex
	failPut     func(key string, n int) bool
	failDelete  func(key string) bool
	failPresign bool
	puts        int
	deletes     []string
}

// NewFaulty returns a Faulty backed by an empty MemoryStorage.
func NewFaulty() *Faulty {
	return &Faulty{MemoryStorage: storage.NewMemoryStorage("test")}
}

// FailPutWithPrefix fails every Put whose key starts with prefix.
func (f *Faulty) FailPutWithPrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = func(key string, _ int) bool { return strings.HasPrefix(key, prefix) }
}

// FailPutAfter lets the first n Puts succeed and fails the rest.
func (f *Faulty) FailPutAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = func(_ string, count int) bool { return count > n }
}

// FailPutTimes fails the first n Puts and succeeds afterwards.
func (f *Faulty) FailPutTimes(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = func(_ string, count int) bool { return count <= n }
}

// FailDeletes fails every Delete.
func (f *Faulty) FailDeletes() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDelete = func(string) bool { return true }
}

// FailPresign makes Presign fail.
func (f *Faulty) FailPresign() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPresign = true
}

// Puts returns the number of Put calls, including failed ones.
func (f *Faulty) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

// Deletes returns every key passed to Delete, including failed ones.
func (f *Faulty) Deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

func (f *Faulty) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	f.puts++
	fail := f.failPut != nil && f.failPut(key, f.puts)
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.MemoryStorage.Put(ctx, key, data, contentType)
}

func (f *Faulty) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, key)
	fail := f.failDelete != nil && f.failDelete(key)
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.MemoryStorage.Delete(ctx, key)
}

func (f *Faulty) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	fail := f.failPresign
	f.mu.Unlock()
	if fail {
		return "", ErrInjected
	}
	return f.MemoryStorage.Presign(ctx, key, ttl)
}
