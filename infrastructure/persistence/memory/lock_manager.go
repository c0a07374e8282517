package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catgraph/application/ports"
	pkgerrors "catgraph/pkg/errors"
)

// LockManager is an in-memory ports.LockManager with the same lease
// semantics as the DynamoDB one: an expired lease counts as free, so a
// crashed owner cannot block a resource past its TTL.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*lease
}

type lease struct {
	lockID    string
	owner     string
	expiresAt time.Time
}

// NewLockManager creates an empty in-memory lock manager
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*lease),
	}
}

// AcquireLock obtains the named lock or fails immediately
func (m *LockManager) AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) (ports.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if held, ok := m.locks[resource]; ok && held.expiresAt.After(now) {
		return nil, pkgerrors.ErrLockNotAcquired.
			WithDetail("resource", resource).
			WithDetail("held_by", held.owner)
	}

	granted := &lease{
		lockID:    fmt.Sprintf("%s_%d", owner, now.UnixNano()),
		owner:     owner,
		expiresAt: now.Add(ttl),
	}
	m.locks[resource] = granted

	return &memoryLock{manager: m, resource: resource, lockID: granted.lockID}, nil
}

// TryAcquireLock polls for the named lock until timeout elapses
func (m *LockManager) TryAcquireLock(ctx context.Context, resource, owner string, ttl, timeout time.Duration) (ports.Lock, error) {
	deadline := time.Now().Add(timeout)

	for {
		lock, err := m.AcquireLock(ctx, resource, owner, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, pkgerrors.ErrLockNotAcquired) {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, pkgerrors.ErrLockNotAcquired.
				WithDetail("resource", resource).
				WithDetail("timeout", timeout.String())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// release removes the lease if it is still the one the caller was granted.
// A lease that expired and was re-acquired belongs to someone else now.
func (m *LockManager) release(resource, lockID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, ok := m.locks[resource]; ok && held.lockID == lockID {
		delete(m.locks, resource)
	}
}

type memoryLock struct {
	manager  *LockManager
	resource string
	lockID   string
}

// Release gives the lock up before its TTL expires
func (l *memoryLock) Release(ctx context.Context) error {
	l.manager.release(l.resource, l.lockID)
	return nil
}
