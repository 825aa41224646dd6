package kvstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Store. It is not durable across restarts and is meant for
// local development and tests.
type Memory struct {
	mu      sync.Mutex
	values  map[string]string
	lists   map[string][]string
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:  make(map[string]string),
		lists:   make(map[string][]string),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// expireLocked drops key if its ttl has passed. Caller holds mu.
func (m *Memory) expireLocked(key string) {
	if at, ok := m.expires[key]; ok && !m.now().Before(at) {
		delete(m.values, key)
		delete(m.lists, key)
		delete(m.expires, key)
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	v, ok := m.values[key]
	if !ok {
		return "", ErrNil
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	m.values[key] = value
	if ttl > 0 {
		m.expires[key] = m.now().Add(ttl)
	} else {
		delete(m.expires, key)
	}
	return nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	var n int64
	if v, ok := m.values[key]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("Incr %s: value is not an integer", key)
		}
		n = parsed
	}
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	_, isValue := m.values[key]
	_, isList := m.lists[key]
	if !isValue && !isList {
		return false, nil
	}
	m.expires[key] = m.now().Add(ttl)
	return true, nil
}

func (m *Memory) LPush(_ context.Context, key, value string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	list := m.lists[key]
	list = append([]string{value}, list...)
	m.lists[key] = list
	return int64(len(list)), nil
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	list := m.lists[key]
	lo, hi, ok := bounds(int64(len(list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, list[lo:hi+1])
	return out, nil
}

func (m *Memory) LRem(_ context.Context, key string, count int64, value string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	list := m.lists[key]
	limit := count
	if limit < 0 {
		limit = -limit
	}

	order := make([]int, 0, len(list))
	for i := range list {
		if count >= 0 {
			order = append(order, i)
		} else {
			order = append(order, len(list)-1-i)
		}
	}

	remove := make([]bool, len(list))
	var removed int64
	for _, i := range order {
		if limit > 0 && removed >= limit {
			break
		}
		if list[i] == value {
			remove[i] = true
			removed++
		}
	}

	kept := make([]string, 0, len(list))
	for i, v := range list {
		if !remove[i] {
			kept = append(kept, v)
		}
	}
	m.setListLocked(key, kept)
	return removed, nil
}

func (m *Memory) LTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	list := m.lists[key]
	lo, hi, ok := bounds(int64(len(list)), start, stop)
	if !ok {
		m.setListLocked(key, nil)
		return nil
	}
	kept := make([]string, hi-lo+1)
	copy(kept, list[lo:hi+1])
	m.setListLocked(key, kept)
	return nil
}

func (m *Memory) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	return int64(len(m.lists[key])), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// setListLocked stores list, deleting the key when it becomes empty like Redis does.
func (m *Memory) setListLocked(key string, list []string) {
	if len(list) == 0 {
		delete(m.lists, key)
		delete(m.expires, key)
		return
	}
	m.lists[key] = list
}

// bounds resolves Redis-style inclusive [start, stop] indexes against a list of length n.
func bounds(n, start, stop int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
