// Package admission decides whether a request may run and what it costs:
// the cycle fee schedule, privileged callers, the outbound soft cap and
// de-duplication of in-flight crypto fetches.
package admission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// Cycle costs.
const (
	// RequestCyclesCost must be attached to every non-privileged request.
	RequestCyclesCost uint64 = 1_000_000_000
	// BaseCyclesCost is charged for every admitted request.
	BaseCyclesCost uint64 = 20_000_000
	// OutboundBundleCyclesCost is charged per crypto symbol fetched from
	// exchanges, for at most two symbols.
	OutboundBundleCyclesCost uint64 = 490_000_000
	// RateLimitedCyclesCost is charged when a request is turned away by the
	// outbound soft cap.
	RateLimitedCyclesCost uint64 = 10_000_000
)

// DefaultOutboundSoftCap bounds the number of outstanding exchange requests.
const DefaultOutboundSoftCap = 50

// AnonymousPrincipal is the textual form of the anonymous caller.
const AnonymousPrincipal = "2vxsx-fae"

// Fee returns the cycles charged for a request that needs to fetch needed
// symbols from the exchanges.
func Fee(needed int) uint64 {
	bundles := uint64(min(max(needed, 0), 2))
	return BaseCyclesCost + bundles*OutboundBundleCyclesCost
}

// IsAnonymous reports whether caller is absent or the anonymous principal.
func IsAnonymous(caller string) bool {
	c := strings.TrimSpace(caller)
	return c == "" || c == AnonymousPrincipal
}

// Wallet is the source of the cycles attached to a request.
type Wallet interface {
	Available() uint64
	// Accept takes up to amount cycles and returns how many were taken.
	Accept(amount uint64) uint64
}

// AttachedCycles is a Wallet holding the cycles sent with one request.
type AttachedCycles struct {
	mu       sync.Mutex
	amount   uint64
	accepted uint64
}

// NewAttachedCycles wraps amount attached cycles.
func NewAttachedCycles(amount uint64) *AttachedCycles {
	return &AttachedCycles{amount: amount}
}

func (a *AttachedCycles) Available() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amount - a.accepted
}

func (a *AttachedCycles) Accept(amount uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	taken := min(amount, a.amount-a.accepted)
	a.accepted += taken
	return taken
}

// Accepted returns the cycles taken so far.
func (a *AttachedCycles) Accepted() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accepted
}

// Charge takes exactly fee from w. A wallet that cannot supply a fee that
// was already checked against Available is a broken invariant and panics.
func Charge(w Wallet, fee uint64) {
	if fee == 0 {
		return
	}
	if got := w.Accept(fee); got != fee {
		panic(fmt.Sprintf("admission: accepted %d cycles, expected %d", got, fee))
	}
}

// Controller tracks process-wide admission state.
type Controller struct {
	mu         sync.Mutex
	softCap    int
	outbound   int
	privileged map[string]struct{}
	inFlight   map[string]struct{}
	group      singleflight.Group
}

// NewController creates a controller. softCap <= 0 selects DefaultOutboundSoftCap.
func NewController(softCap int, privileged []string) *Controller {
	if softCap <= 0 {
		softCap = DefaultOutboundSoftCap
	}
	p := make(map[string]struct{}, len(privileged))
	for _, id := range privileged {
		if id = strings.TrimSpace(id); id != "" {
			p[id] = struct{}{}
		}
	}
	return &Controller{softCap: softCap, privileged: p, inFlight: map[string]struct{}{}}
}

// IsPrivileged reports whether caller bypasses fees and the soft cap.
func (c *Controller) IsPrivileged(caller string) bool {
	_, ok := c.privileged[strings.TrimSpace(caller)]
	return ok
}

// Guard holds a reservation of outbound requests.
type Guard struct {
	c        *Controller
	n        int
	released bool
}

// Release returns the reserved requests to the controller. Release is
// idempotent.
func (g *Guard) Release() {
	g.c.mu.Lock()
	defer g.c.mu.Unlock()
	if g.released {
		return
	}
	g.c.outbound -= g.n
	g.n = 0
	g.released = true
}

// Split moves n reserved requests from g into a new guard owned by a fetch.
// Whatever g can no longer cover, because it was released or is exhausted,
// is reserved afresh without consulting the soft cap: the fetch it covers
// was admitted already.
func (g *Guard) Split(n int) *Guard {
	g.c.mu.Lock()
	defer g.c.mu.Unlock()
	moved := 0
	if !g.released {
		moved = min(n, g.n)
		g.n -= moved
	}
	g.c.outbound += n - moved
	return &Guard{c: g.c, n: n}
}

// Reserve accounts for n outbound requests. Non-privileged callers are
// refused with RateLimited when the reservation would exceed the soft cap.
func (c *Controller) Reserve(n int, privileged bool) (*Guard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 && !privileged && c.outbound+n > c.softCap {
		return nil, apperrors.ErrRateLimited
	}
	c.outbound += n
	return &Guard{c: c, n: n}, nil
}

// Outbound returns the number of reserved outbound requests.
func (c *Controller) Outbound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbound
}

func flightKey(symbol string, timestamp uint64) string {
	return fmt.Sprintf("%s@%d", symbol, timestamp)
}

// IsInFlight reports whether symbol at timestamp is currently being fetched.
func (c *Controller) IsInFlight(symbol string, timestamp uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[flightKey(symbol, timestamp)]
	return ok
}

// InFlight returns the number of fetches currently running.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}

// Fetch runs fn for (symbol, timestamp) unless an identical fetch is already
// running, in which case the caller waits for its result. The fetch itself
// is detached from ctx; a caller whose ctx ends before the result arrives
// gets Pending. A fetch started here takes units outbound requests from
// guard and keeps them reserved until fn returns, so requests still in
// flight stay counted after the caller has gone. A panic in fn is returned
// as an error.
func (c *Controller) Fetch(
	ctx context.Context,
	symbol string,
	timestamp uint64,
	guard *Guard,
	units int,
	fn func(context.Context) (model.QueriedRate, error),
) (model.QueriedRate, error) {
	key := flightKey(symbol, timestamp)
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (v any, err error) {
		if guard != nil {
			defer guard.Split(units).Release()
		}
		c.mu.Lock()
		c.inFlight[key] = struct{}{}
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			delete(c.inFlight, key)
			c.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fetch %s panicked: %v", key, r)
			}
		}()
		return fn(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.QueriedRate{}, res.Err
		}
		return res.Val.(model.QueriedRate).Clone(), nil
	case <-ctx.Done():
		return model.QueriedRate{}, apperrors.ErrPending
	}
}
