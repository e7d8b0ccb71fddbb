package cart

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// GuardKey identifies one logical add-to-cart interaction. Epoch is supplied
// by the caller and changes with every UI render cycle.
type GuardKey struct {
	UserID int64
	MenuID int64
	Epoch  string
}

// String renders the key for use in shared stores.
func (k GuardKey) String() string {
	return "cart:add:" + strconv.FormatInt(k.UserID, 10) + ":" + strconv.FormatInt(k.MenuID, 10) + ":" + k.Epoch
}

// Guard suppresses duplicate submissions. Acquire returns true the first time
// a key is seen within the guard's window and false for repeats. Release
// forgets a key so a failed attempt can be retried.
type Guard interface {
	Acquire(ctx context.Context, key GuardKey) (bool, error)
	Release(ctx context.Context, key GuardKey) error
}

// MemoryGuard is a process-local Guard that remembers keys for a fixed TTL.
type MemoryGuard struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[GuardKey]time.Time
}

// NewMemoryGuard creates a MemoryGuard remembering keys for ttl.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[GuardKey]time.Time),
	}
}

// Acquire implements Guard.
func (g *MemoryGuard) Acquire(_ context.Context, key GuardKey) (bool, error) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}

// Release implements Guard.
func (g *MemoryGuard) Release(_ context.Context, key GuardKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.seen, key)
	return nil
}

// Sweep drops expired keys.
func (g *MemoryGuard) Sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
}

// StartSweeper periodically calls Sweep until ctx is cancelled.
func (g *MemoryGuard) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Sweep()
			}
		}
	}()
}
