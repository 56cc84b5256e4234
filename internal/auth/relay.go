package auth

import (
	"context"
	"sort"
	"sync"
)

// Ensure Relay implements IdentityProvider
var _ IdentityProvider = (*Relay)(nil)

type providerResult struct {
	identity *Identity
	err      error
}

// Relay is an IdentityProvider whose results are delivered by a browser
// client running the provider SDK. The client posts popup results, redirect
// results and auth state changes; the session consumes them through the
// IdentityProvider methods.
type Relay struct {
	popup chan providerResult

	mu               sync.Mutex
	redirect         *providerResult
	redirectsStarted int
	listeners        map[int]StateListener
	nextListener     int
}

// NewRelay creates a Relay with nothing delivered.
func NewRelay() *Relay {
	return &Relay{
		popup:     make(chan providerResult, 1),
		listeners: map[int]StateListener{},
	}
}

// SignInPopup waits for DeliverPopup. A result delivered before the call is
// returned immediately.
func (r *Relay) SignInPopup(ctx context.Context) (*Identity, error) {
	select {
	case res := <-r.popup:
		return res.identity, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SignInRedirect records that a redirect was started. Navigation itself is
// done by the client.
func (r *Relay) SignInRedirect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirectsStarted++
	return nil
}

// RedirectResult pops the result set by SetRedirectResult.
func (r *Relay) RedirectResult(ctx context.Context) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.redirect == nil {
		return nil, nil
	}
	res := *r.redirect
	r.redirect = nil
	return res.identity, res.err
}

func (r *Relay) OnAuthStateChanged(fn StateListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// SignOut drops any undelivered results.
func (r *Relay) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.redirect = nil
	r.mu.Unlock()
	r.drainPopup()
	return nil
}

// DeliverPopup hands a popup result to the pending or next SignInPopup call.
// An undelivered earlier result is replaced.
func (r *Relay) DeliverPopup(identity *Identity, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drainPopup()
	r.popup <- providerResult{identity: identity, err: err}
}

// SetRedirectResult stores the result RedirectResult will return once.
func (r *Relay) SetRedirectResult(identity *Identity, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirect = &providerResult{identity: identity, err: err}
}

// NotifyStateChanged calls every listener with identity, in registration
// order, and returns when they are done.
func (r *Relay) NotifyStateChanged(ctx context.Context, identity *Identity) {
	r.mu.Lock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	fns := make([]StateListener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, identity)
	}
}

// RedirectsStarted reports how many redirect flows were started.
func (r *Relay) RedirectsStarted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirectsStarted
}

func (r *Relay) drainPopup() {
	select {
	case <-r.popup:
	default:
	}
}
