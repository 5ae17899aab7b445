package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

var ErrNamespaceBusy = errors.New("namespace busy")

const (
	DefaultLeaseTTL = 30 * time.Second
	DefaultLockWait = 5 * time.Second
	lockPoll        = 25 * time.Millisecond
)

// NamespaceGuard serializes calls within a namespace by holding the lease
// "namespace:<ns>" for the duration of each call.
type NamespaceGuard struct {
	leases store.LeaseStore
	ttl    time.Duration
	wait   time.Duration
	logger *slog.Logger
}

// NewNamespaceGuard creates a guard over leases. A nil LeaseStore falls back
// to process-local leases.
func NewNamespaceGuard(leases store.LeaseStore, ttl, wait time.Duration, logger *slog.Logger) *NamespaceGuard {
	if leases == nil {
		leases = NewLocalLeases()
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NamespaceGuard{leases: leases, ttl: ttl, wait: wait, logger: logger}
}

func leaseName(namespace string) string {
	return "namespace:" + namespace
}

// Lock acquires the namespace lease for holder, waiting up to the guard's
// bound. The returned context is cancelled with store.ErrLeaseLost if the
// lease cannot be renewed; the returned func releases the lease and stops
// renewal.
func (g *NamespaceGuard) Lock(ctx context.Context, namespace, holder string) (context.Context, func(), error) {
	name := leaseName(namespace)
	deadline := time.Now().Add(g.wait)

	for {
		ok, err := g.leases.Acquire(ctx, name, holder, g.ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to acquire %s: %w", name, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNamespaceBusy, namespace)
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(lockPoll):
		}
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go g.renew(namespace, holder, cancel, stop, done)

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)
			if err := g.leases.Release(context.Background(), name, holder); err != nil {
				g.logger.Warn("lease_release_failed", "lease", name, "holder", holder, "error", err)
			}
		})
	}, nil
}

// renew keeps a long-running call's lease alive. Losing the lease cancels
// the call's context.
func (g *NamespaceGuard) renew(namespace, holder string, lost context.CancelCauseFunc, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	name := leaseName(namespace)
	ticker := time.NewTicker(g.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := g.leases.Renew(context.Background(), name, holder, g.ttl)
			switch {
			case err == nil:
			case errors.Is(err, store.ErrLeaseLost):
				g.logger.Error("namespace_lease_lost", "namespace", namespace, "holder", holder)
				lost(fmt.Errorf("%w: %s", store.ErrLeaseLost, namespace))
				return
			default:
				g.logger.Warn("lease_renew_failed", "namespace", namespace, "holder", holder, "error", err)
			}
		}
	}
}

// LocalLeases is an in-process LeaseStore for single-node deployments and
// tests.
type LocalLeases struct {
	mu     sync.Mutex
	leases map[string]*store.Lease
	now    func() time.Time
}

func NewLocalLeases() *LocalLeases {
	return &LocalLeases{leases: make(map[string]*store.Lease), now: time.Now}
}

func (l *LocalLeases) Acquire(_ context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cur, ok := l.leases[name]
	if ok && cur.HolderID != holderID && now.Before(cur.ExpiresAt) {
		return false, nil
	}
	if !ok {
		cur = &store.Lease{Name: name}
		l.leases[name] = cur
	}
	if cur.HolderID != holderID {
		cur.Epoch++
	}
	cur.HolderID = holderID
	cur.ExpiresAt = now.Add(ttl)
	cur.Version++
	return true, nil
}

func (l *LocalLeases) Renew(_ context.Context, name, holderID string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.leases[name]
	if !ok || cur.HolderID != holderID || !l.now().Before(cur.ExpiresAt) {
		return store.ErrLeaseLost
	}
	cur.ExpiresAt = l.now().Add(ttl)
	cur.Version++
	return nil
}

func (l *LocalLeases) Release(_ context.Context, name, holderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.leases[name]; ok && cur.HolderID == holderID {
		cur.HolderID = ""
		cur.ExpiresAt = time.Time{}
	}
	return nil
}

func (l *LocalLeases) Get(_ context.Context, name string) (*store.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.leases[name]
	if !ok || cur.HolderID == "" || !l.now().Before(cur.ExpiresAt) {
		return nil, nil
	}
	out := *cur
	return &out, nil
}
