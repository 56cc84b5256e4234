package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/homestock/internal/auth"
	"github.com/mmynk/homestock/internal/prefs"
	"github.com/mmynk/homestock/internal/storage"
	"github.com/mmynk/homestock/pkg/logging"
)

// Device is the session of one device together with the relay its client
// delivers provider results to.
type Device struct {
	Session *Session
	Relay   *auth.Relay
}

// Factory builds the Device for a device id.
type Factory func(deviceID string) Device

// NewFactory returns a Factory cloning base for every device, with its own
// relay and a prefs namespace on prefsStore. A nil prefsStore keeps prefs in
// memory.
func NewFactory(base Config, prefsStore storage.DocumentStore) Factory {
	return func(deviceID string) Device {
		relay := auth.NewRelay()

		cfg := base
		cfg.Provider = relay
		cfg.DeviceID = deviceID
		if prefsStore != nil {
			cfg.Prefs = prefs.NewDocuments(prefsStore, deviceID)
		} else {
			cfg.Prefs = prefs.NewMemory()
		}

		return Device{Session: New(cfg), Relay: relay}
	}
}

// Registry keeps one Device per device id, built lazily. Devices not used
// for a while can be dropped with EvictIdle.
type Registry struct {
	factory Factory
	now     func() time.Time

	mu      sync.Mutex
	devices map[string]*entry
}

type entry struct {
	device   Device
	lastSeen time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory, now: time.Now, devices: map[string]*entry{}}
}

// Get returns the device for id, creating it on first use.
func (r *Registry) Get(id string) Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.devices[id]; ok {
		e.lastSeen = now
		return e.device
	}
	d := r.factory(id)
	r.devices[id] = &entry{device: d, lastSeen: now}
	return d
}

// Lookup returns the device for id without creating it.
func (r *Registry) Lookup(id string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	e.lastSeen = r.now()
	return e.device, true
}

// Len reports how many devices are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// EvictIdle closes and removes devices unused for longer than maxIdle and
// returns how many were removed.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	cutoff := r.now().Add(-maxIdle)
	var idle []Device
	for id, e := range r.devices {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.device)
			delete(r.devices, id)
		}
	}
	r.mu.Unlock()

	for _, d := range idle {
		d.Session.Close()
	}
	return len(idle)
}

// Run calls EvictIdle every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration, logger *slog.Logger) {
	logger = logging.OrDefault(logger)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				logger.Info("Evicted idle device sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	devices := r.devices
	r.devices = map[string]*entry{}
	r.mu.Unlock()

	for _, e := range devices {
		e.device.Session.Close()
	}
}
