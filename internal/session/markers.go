package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmynk/homestock/internal/prefs"
)

// redirectMarker is persisted when a redirect sign-in starts, so the next
// page load knows a result may be waiting.
type redirectMarker struct {
	StartedAt int64 `json:"startedAt"`
}

// setupMarker is persisted while an identity waits for family setup.
type setupMarker struct {
	NeedsSetup bool   `json:"needsSetup"`
	Email      string `json:"email"`
}

func (s *Session) writeRedirectMarker(ctx context.Context) {
	raw, _ := json.Marshal(redirectMarker{StartedAt: s.now().UnixMilli()})
	if err := s.prefs.Set(ctx, prefs.KeyRedirectPending, string(raw)); err != nil {
		s.logger.Warn("Failed to persist redirect marker", "error", err)
	}
}

// redirectMarkerActive reports whether a fresh redirect marker exists.
// Unreadable and expired markers are removed.
func (s *Session) redirectMarkerActive(ctx context.Context) bool {
	raw, ok, err := s.prefs.Get(ctx, prefs.KeyRedirectPending)
	if err != nil {
		s.logger.Warn("Failed to read redirect marker", "error", err)
		return false
	}
	if !ok {
		return false
	}

	var m redirectMarker
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m.StartedAt == 0 {
		s.logger.Warn("Discarding unreadable redirect marker", "value", raw)
		s.clearRedirectMarker(ctx)
		return false
	}

	age := s.now().Sub(time.UnixMilli(m.StartedAt))
	if s.markerTTL > 0 && age > s.markerTTL {
		s.logger.Info("Discarding expired redirect marker", "age", age)
		s.clearRedirectMarker(ctx)
		return false
	}
	return true
}

func (s *Session) clearRedirectMarker(ctx context.Context) {
	if err := s.prefs.Delete(ctx, prefs.KeyRedirectPending); err != nil {
		s.logger.Warn("Failed to clear redirect marker", "error", err)
	}
}

func (s *Session) writeSetupMarker(ctx context.Context, email string) {
	raw, _ := json.Marshal(setupMarker{NeedsSetup: true, Email: email})
	if err := s.prefs.Set(ctx, prefs.KeyPendingSetup, string(raw)); err != nil {
		s.logger.Warn("Failed to persist pending setup", "error", err)
	}
}

func (s *Session) readSetupMarker(ctx context.Context) (setupMarker, bool) {
	raw, ok, err := s.prefs.Get(ctx, prefs.KeyPendingSetup)
	if err != nil || !ok {
		return setupMarker{}, false
	}
	var m setupMarker
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return setupMarker{}, false
	}
	return m, true
}

func (s *Session) clearSetupMarker(ctx context.Context) {
	if err := s.prefs.Delete(ctx, prefs.KeyPendingSetup); err != nil {
		s.logger.Warn("Failed to clear pending setup", "error", err)
	}
}

func (s *Session) lastUser(ctx context.Context) string {
	email, ok, err := s.prefs.Get(ctx, prefs.KeyLastLoggedInUser)
	if err != nil {
		s.logger.Warn("Failed to read last user", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return email
}

func (s *Session) storeLastUser(ctx context.Context, email string) {
	if email == "" {
		return
	}
	if err := s.prefs.Set(ctx, prefs.KeyLastLoggedInUser, email); err != nil {
		s.logger.Warn("Failed to persist last user", "error", err)
	}
}

func (s *Session) clearLastUser(ctx context.Context) {
	if err := s.prefs.Delete(ctx, prefs.KeyLastLoggedInUser); err != nil {
		s.logger.Warn("Failed to clear last user", "error", err)
	}
}
