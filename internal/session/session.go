// Package session implements the per-device authentication state machine.
//
// A Session resolves who is using a device and which family they act for.
// Identities arrive from two independent paths after a redirect sign-in: the
// explicit redirect result checked on page load, and the provider's ambient
// auth-state listener. Whichever path claims the redirect first maps the
// identity to a domain user; the other only records the identity.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/homestock/internal/apperr"
	"github.com/mmynk/homestock/internal/auth"
	"github.com/mmynk/homestock/internal/inventory"
	"github.com/mmynk/homestock/internal/metrics"
	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/internal/prefs"
	"github.com/mmynk/homestock/pkg/logging"
)

// Phase is the coarse state of a session.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseResolving     Phase = "resolving"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAwaitingSetup Phase = "awaiting_setup"
	PhaseAnonymous     Phase = "anonymous"
)

type redirectState int

const (
	redirectIdle redirectState = iota
	redirectPending
	redirectClaimed
)

const (
	DefaultRedirectGrace = 300 * time.Millisecond
	DefaultMarkerTTL     = 10 * time.Minute
)

const (
	msgNoEmail        = "No email found in Google account."
	msgLookupFailed   = "Failed to look up your account. Please try again."
	msgSignInFailed   = "Google sign-in failed. Please try again."
	msgCreateFailed   = "Failed to create family. Please try again."
	msgJoinFailed     = "Failed to join family. Please try again."
	msgFamilyNotFound = "Family not found. Please check the Family ID."
	msgLoginFailed    = "Login failed. Please try again."
)

// Directory is the subset of family and user records a session needs.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateFamily(ctx context.Context, name string) (models.Family, error)
	DeleteFamily(ctx context.Context, familyID string) error
	CreateUser(ctx context.Context, username, email, familyID string) (models.User, error)
	GetFamily(ctx context.Context, familyID string) (*models.Family, error)
}

// PendingSetup names the identity that still has to create or join a family.
type PendingSetup struct {
	Email string `json:"email"`
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Phase                Phase          `json:"phase"`
	User                 *models.User   `json:"user,omitempty"`
	FamilyID             string         `json:"familyID,omitempty"`
	Identity             *auth.Identity `json:"identity,omitempty"`
	PendingSetup         *PendingSetup  `json:"pendingSetup,omitempty"`
	IsLoading            bool           `json:"isLoading"`
	IsAuthenticating     bool           `json:"isAuthenticating"`
	IsProcessingRedirect bool           `json:"isProcessingRedirect"`
	Token                string         `json:"token,omitempty"`
}

// LoginOutcome tells the caller how an identity provider login ended.
type LoginOutcome string

const (
	LoginAuthenticated   LoginOutcome = "authenticated"
	LoginSetupRequired   LoginOutcome = "setup_required"
	LoginRedirectStarted LoginOutcome = "redirect_started"
)

// LoginResult is the outcome of LoginWithIdentityProvider. Email is set for
// LoginSetupRequired.
type LoginResult struct {
	Outcome LoginOutcome `json:"outcome"`
	Email   string       `json:"email,omitempty"`
}

// Config holds the collaborators of a Session.
type Config struct {
	Provider  auth.IdentityProvider
	Directory Directory
	Prefs     prefs.Store
	Items     *inventory.Repository

	// Tokens issues a session token on authentication when set.
	Tokens   *auth.JWTManager
	DeviceID string

	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time

	// RedirectGrace is how long Start waits before asking for the redirect
	// result. Zero disables the wait.
	RedirectGrace time.Duration
	// MarkerTTL is how long a redirect marker stays valid. Zero means forever.
	MarkerTTL time.Duration

	ItemOptions []inventory.Option
}

// Session is the authentication state of one device.
type Session struct {
	provider  auth.IdentityProvider
	dir       Directory
	prefs     prefs.Store
	items     *inventory.Repository
	tokens    *auth.JWTManager
	deviceID  string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	grace     time.Duration
	markerTTL time.Duration
	itemOpts  []inventory.Option

	mu                   sync.Mutex
	phase                Phase
	user                 *models.User
	identity             *auth.Identity
	pendingSetup         *PendingSetup
	ops                  *inventory.Operations
	token                string
	isLoading            bool
	isAuthenticating     bool
	isProcessingRedirect bool
	redirect             redirectState
	unsubscribe          func()
	subscribers          map[int]chan Snapshot
	nextSubscriber       int
}

// New creates a session in PhaseUninitialized.
func New(cfg Config) *Session {
	if cfg.Prefs == nil {
		cfg.Prefs = prefs.NewMemory()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := logging.OrDefault(cfg.Logger)
	if cfg.DeviceID != "" {
		logger = logger.With("device_id", cfg.DeviceID)
	}

	itemOpts := append([]inventory.Option{
		inventory.WithLogger(logger),
		inventory.WithMetrics(cfg.Metrics),
	}, cfg.ItemOptions...)

	return &Session{
		provider:    cfg.Provider,
		dir:         cfg.Directory,
		prefs:       cfg.Prefs,
		items:       cfg.Items,
		tokens:      cfg.Tokens,
		deviceID:    cfg.DeviceID,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         cfg.Now,
		grace:       cfg.RedirectGrace,
		markerTTL:   cfg.MarkerTTL,
		itemOpts:    itemOpts,
		phase:       PhaseUninitialized,
		subscribers: map[int]chan Snapshot{},
	}
}

// Start handles a page load. The redirect claim only lives for one load, so
// it is reset first. Redirect detection happens before the auth state
// listener is (re)subscribed, so the listener always sees the redirect
// sub-state of this load. When a redirect sign-in is in flight, Start waits
// the grace period and processes the redirect result.
func (s *Session) Start(ctx context.Context, env auth.Environment) error {
	s.mu.Lock()
	s.redirect = redirectIdle
	fresh := s.phase == PhaseUninitialized
	if fresh {
		s.phase = PhaseResolving
		s.isLoading = true
	}
	previous := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if fresh {
		s.transitioned(PhaseResolving)
	}
	if previous != nil {
		previous()
	}

	markerActive := s.redirectMarkerActive(ctx)
	urlMarkers := auth.HasRedirectMarkers(env.URL)
	inFlight := markerActive || urlMarkers
	if inFlight {
		s.mu.Lock()
		if s.redirect == redirectIdle {
			s.redirect = redirectPending
		}
		s.isProcessingRedirect = true
		s.mu.Unlock()
		s.notify()
		s.logger.Info("Redirect sign-in in flight", "marker", markerActive, "url_markers", urlMarkers)
	}

	unsubscribe := s.provider.OnAuthStateChanged(s.HandleAuthStateChanged)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	if !inFlight {
		return nil
	}
	defer s.finishRedirectProcessing()

	if s.grace > 0 {
		timer := time.NewTimer(s.grace)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.releaseRedirect()
			return ctx.Err()
		case <-timer.C:
		}
	}

	identity, err := s.provider.RedirectResult(ctx)
	if err != nil {
		s.logger.Warn("Redirect result failed", "error", err)
		s.clearRedirectMarker(ctx)
		s.releaseRedirect()
		return nil
	}
	if identity == nil {
		s.logger.Debug("No redirect result")
		s.clearRedirectMarker(ctx)
		s.releaseRedirect()
		return nil
	}

	s.observe(identity)
	if !s.claimRedirect("result") {
		s.logger.Debug("Redirect already claimed by listener", "email", identity.Email)
		s.clearRedirectMarker(ctx)
		return nil
	}
	s.clearRedirectMarker(ctx)

	if _, err := s.resolveIdentity(ctx, identity); err != nil {
		s.logger.Error("Failed to resolve redirect identity", "email", identity.Email, "error", err)
		s.failResolution()
	}
	return nil
}

// HandleAuthStateChanged is the ambient auth state listener.
func (s *Session) HandleAuthStateChanged(ctx context.Context, identity *auth.Identity) {
	s.observe(identity)
	defer s.finishLoading()

	if identity == nil {
		s.handleSignedOut(ctx)
		return
	}

	s.mu.Lock()
	claimed := s.redirect == redirectClaimed
	pending := s.redirect == redirectPending
	sameUser := s.phase == PhaseAuthenticated && s.user != nil && strings.EqualFold(s.user.Email, identity.Email)
	s.mu.Unlock()

	if claimed || sameUser {
		s.logger.Debug("Auth state change is observational", "email", identity.Email, "claimed", claimed)
		return
	}

	if pending {
		if !s.claimRedirect("listener") {
			return
		}
		s.clearRedirectMarker(ctx)
		s.setProcessingRedirect(true)
		defer s.setProcessingRedirect(false)

		if _, err := s.resolveIdentity(ctx, identity); err != nil {
			s.logger.Error("Failed to resolve redirect identity", "email", identity.Email, "error", err)
			s.failResolution()
		}
		return
	}

	email := strings.TrimSpace(identity.Email)
	if email == "" {
		s.logger.Error("Auth state change without email")
		s.failResolution()
		return
	}

	user, err := s.dir.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user", "email", email, "error", err)
		s.failResolution()
		return
	}
	if user != nil {
		s.logger.Info("Found existing user", "username", user.Username, "family_id", user.FamilyID)
		s.authenticate(ctx, *user)
		return
	}

	if m, ok := s.readSetupMarker(ctx); ok && m.Email == email {
		s.logger.Info("Resuming pending setup", "email", email)
	} else {
		s.logger.Info("Identity has no user and no pending setup", "email", email)
	}
	s.awaitSetup(ctx, email)
}

// LoginWithUsername is the legacy direct login. On failure the session is
// left as it was.
func (s *Session) LoginWithUsername(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperr.New(apperr.InvalidInput, "Please enter a username.")
	}

	user, err := s.dir.GetUserByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Error during login", "username", username, "error", err)
		return apperr.Wrap(apperr.LoginFailed, msgLoginFailed, err)
	}
	if user == nil {
		s.logger.Info("Login failed: user not found", "username", username)
		return apperr.New(apperr.LoginFailed, "User not found.")
	}
	if strings.TrimSpace(user.FamilyID) == "" {
		s.logger.Error("User found but has no familyID", "username", username)
		return apperr.New(apperr.LoginFailed, "This user is not part of a family.")
	}

	s.logger.Info("User logged in", "username", username, "family_id", user.FamilyID)
	s.authenticate(ctx, *user)
	return nil
}

// LoginWithIdentityProvider signs in with the redirect flow on mobile clients
// and the popup flow elsewhere.
func (s *Session) LoginWithIdentityProvider(ctx context.Context, env auth.Environment) (LoginResult, error) {
	s.setAuthenticating(true)

	if env.IsMobile() {
		s.logger.Info("Using redirect sign-in")
		s.writeRedirectMarker(ctx)
		s.clearSetupMarker(ctx)
		s.mu.Lock()
		s.redirect = redirectIdle
		s.pendingSetup = nil
		s.mu.Unlock()

		if err := s.provider.SignInRedirect(ctx); err != nil {
			s.logger.Error("Error starting redirect sign-in", "error", err)
			s.clearRedirectMarker(ctx)
			s.setAuthenticating(false)
			return LoginResult{}, apperr.Wrap(apperr.IdentityResolutionFailed, msgSignInFailed, err)
		}
		s.notify()
		return LoginResult{Outcome: LoginRedirectStarted}, nil
	}

	s.logger.Info("Using popup sign-in")
	identity, err := s.provider.SignInPopup(ctx)
	if err != nil {
		s.logger.Error("Error during popup sign-in", "error", err)
		s.clearRedirectMarker(ctx)
		s.setAuthenticating(false)
		return LoginResult{}, apperr.Wrap(apperr.IdentityResolutionFailed, msgSignInFailed, err)
	}

	s.observe(identity)
	res, err := s.resolveIdentity(ctx, identity)
	s.setAuthenticating(false)
	if err != nil {
		s.clearRedirectMarker(ctx)
		return LoginResult{}, err
	}
	return res, nil
}

// CreateFamily creates a family named familyName and a user for email in it.
func (s *Session) CreateFamily(ctx context.Context, email, familyName, username string) error {
	email, familyName, username = strings.TrimSpace(email), strings.TrimSpace(familyName), strings.TrimSpace(username)
	if err := validateSetup(email, username); err != nil {
		return err
	}
	if familyName == "" {
		return apperr.New(apperr.InvalidInput, "Please enter a family name.")
	}

	family, err := s.dir.CreateFamily(ctx, familyName)
	if err != nil {
		s.logger.Error("Error creating new family", "error", err)
		return apperr.FromStorage(err, msgCreateFailed)
	}
	user, err := s.dir.CreateUser(ctx, username, email, family.FamilyID)
	if err != nil {
		s.logger.Error("Error creating user", "family_id", family.FamilyID, "error", err)
		if delErr := s.dir.DeleteFamily(ctx, family.FamilyID); delErr != nil {
			s.logger.Warn("Failed to remove family without members", "family_id", family.FamilyID, "error", delErr)
		}
		return apperr.FromStorage(err, msgCreateFailed)
	}

	s.logger.Info("Family created", "family_id", family.FamilyID, "username", username)
	s.authenticate(ctx, user)
	return nil
}

// JoinFamily binds email to an existing family. A nonexistent family yields
// FamilyNotFound and creates no user.
func (s *Session) JoinFamily(ctx context.Context, email, familyID, username string) error {
	email, familyID, username = strings.TrimSpace(email), strings.TrimSpace(familyID), strings.TrimSpace(username)
	if err := validateSetup(email, username); err != nil {
		return err
	}
	if familyID == "" {
		return apperr.New(apperr.InvalidInput, "Please enter a Family ID.")
	}

	family, err := s.dir.GetFamily(ctx, familyID)
	if err != nil {
		s.logger.Error("Error joining family", "family_id", familyID, "error", err)
		return apperr.FromStorage(err, msgJoinFailed)
	}
	if family == nil {
		return apperr.New(apperr.FamilyNotFound, msgFamilyNotFound)
	}

	user, err := s.dir.CreateUser(ctx, username, email, familyID)
	if err != nil {
		s.logger.Error("Error joining family", "family_id", familyID, "error", err)
		return apperr.FromStorage(err, msgJoinFailed)
	}

	s.logger.Info("Joined family", "family_id", familyID, "username", username)
	s.authenticate(ctx, user)
	return nil
}

// Logout signs out of the provider and clears all local state and markers.
// Local state is cleared even when the provider sign-out fails.
func (s *Session) Logout(ctx context.Context) error {
	signOutErr := s.provider.SignOut(ctx)
	if signOutErr != nil {
		s.logger.Error("Error during provider sign-out", "error", signOutErr)
	}

	s.mu.Lock()
	s.user = nil
	s.identity = nil
	s.pendingSetup = nil
	s.ops = nil
	s.token = ""
	s.redirect = redirectIdle
	s.isAuthenticating = false
	s.isProcessingRedirect = false
	s.isLoading = false
	s.phase = PhaseAnonymous
	s.mu.Unlock()

	s.clearLastUser(ctx)
	s.clearSetupMarker(ctx)
	s.clearRedirectMarker(ctx)
	s.transitioned(PhaseAnonymous)
	s.logger.Info("User logged out")

	if signOutErr != nil {
		return apperr.Wrap(apperr.IdentityResolutionFailed, "Sign-out failed. You have been logged out on this device.", signOutErr)
	}
	return nil
}

// Family returns the current family with its members.
func (s *Session) Family(ctx context.Context) (*models.Family, error) {
	snap := s.Snapshot()
	switch snap.Phase {
	case PhaseAuthenticated:
	case PhaseAwaitingSetup:
		return nil, apperr.New(apperr.SetupRequired, "Create or join a family first.")
	default:
		return nil, apperr.New(apperr.InvalidFamilyContext, "Not logged in.")
	}

	family, err := s.dir.GetFamily(ctx, snap.FamilyID)
	if err != nil {
		return nil, apperr.FromStorage(err, "Failed to load family. Please try again.")
	}
	if family == nil {
		return nil, apperr.New(apperr.FamilyNotFound, msgFamilyNotFound)
	}
	return family, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Items returns the operations service bound to the current family, or nil
// when the session is not authenticated. The instance is replaced, never
// mutated, when the family changes.
func (s *Session) Items() *inventory.Operations {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops
}

// ItemsFor returns Items while the session is still authenticated as userID
// in familyID, and nil otherwise.
func (s *Session) ItemsFor(userID, familyID string) *inventory.Operations {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAuthenticated || s.user == nil || s.ops == nil {
		return nil
	}
	if s.user.UserID != userID || s.ops.FamilyID() != familyID {
		return nil
	}
	return s.ops
}

// Subscribe returns a channel receiving the latest snapshot after every
// change. Slow readers only see the most recent one.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubscriber
	s.nextSubscriber++
	ch := make(chan Snapshot, 1)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}
}

// Close unsubscribes from the provider and closes all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// resolveIdentity maps an identity to a domain user: Authenticated when a
// user exists for the email, AwaitingSetup otherwise.
func (s *Session) resolveIdentity(ctx context.Context, identity *auth.Identity) (LoginResult, error) {
	if identity == nil || strings.TrimSpace(identity.Email) == "" {
		return LoginResult{}, apperr.Wrap(apperr.IdentityResolutionFailed, msgNoEmail, auth.ErrNoEmail)
	}
	email := strings.TrimSpace(identity.Email)

	user, err := s.dir.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user", "email", email, "error", err)
		return LoginResult{}, apperr.FromStorage(err, msgLookupFailed)
	}
	if user == nil {
		s.awaitSetup(ctx, email)
		return LoginResult{Outcome: LoginSetupRequired, Email: email}, nil
	}

	s.authenticate(ctx, *user)
	return LoginResult{Outcome: LoginAuthenticated}, nil
}

func (s *Session) handleSignedOut(ctx context.Context) {
	s.mu.Lock()
	s.pendingSetup = nil
	s.mu.Unlock()
	s.clearSetupMarker(ctx)

	email := s.lastUser(ctx)
	if email == "" {
		s.becomeAnonymousUnlessAuthenticated()
		return
	}

	user, err := s.dir.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Error loading last user", "email", email, "error", err)
		s.clearLastUser(ctx)
		s.becomeAnonymousUnlessAuthenticated()
		return
	}
	if user == nil {
		s.logger.Info("Last user no longer exists", "email", email)
		s.clearLastUser(ctx)
		s.becomeAnonymousUnlessAuthenticated()
		return
	}

	s.logger.Info("Resuming last user", "username", user.Username)
	s.authenticate(ctx, *user)
}

func (s *Session) authenticate(ctx context.Context, user models.User) {
	var token string
	if s.tokens != nil {
		t, err := s.tokens.Generate(user, s.deviceID)
		if err != nil {
			s.logger.Error("Failed to issue session token", "error", err)
		} else {
			token = t
		}
	}

	s.mu.Lock()
	s.user = &user
	s.pendingSetup = nil
	s.isAuthenticating = false
	s.token = token
	s.bindFamilyLocked(user.FamilyID)
	s.phase = PhaseAuthenticated
	s.mu.Unlock()

	s.storeLastUser(ctx, user.Email)
	s.clearSetupMarker(ctx)
	s.transitioned(PhaseAuthenticated)
}

func (s *Session) awaitSetup(ctx context.Context, email string) {
	s.mu.Lock()
	s.user = nil
	s.ops = nil
	s.token = ""
	s.pendingSetup = &PendingSetup{Email: email}
	s.isAuthenticating = false
	s.phase = PhaseAwaitingSetup
	s.mu.Unlock()

	s.writeSetupMarker(ctx, email)
	s.transitioned(PhaseAwaitingSetup)
}

func (s *Session) becomeAnonymousUnlessAuthenticated() {
	s.mu.Lock()
	if s.phase == PhaseAuthenticated {
		s.mu.Unlock()
		return
	}
	s.user = nil
	s.ops = nil
	s.token = ""
	s.phase = PhaseAnonymous
	s.mu.Unlock()
	s.transitioned(PhaseAnonymous)
}

// failResolution ends a resolution attempt that could not complete. A session
// that was still resolving becomes anonymous; otherwise it keeps its state.
func (s *Session) failResolution() {
	s.mu.Lock()
	s.isAuthenticating = false
	resolving := s.phase == PhaseResolving
	if resolving {
		s.phase = PhaseAnonymous
	}
	s.mu.Unlock()

	if resolving {
		s.transitioned(PhaseAnonymous)
		return
	}
	s.notify()
}

// bindFamilyLocked replaces the operations instance when the family changes.
func (s *Session) bindFamilyLocked(familyID string) {
	if s.ops != nil && s.ops.FamilyID() == familyID {
		return
	}
	if s.ops != nil {
		s.ops = s.ops.Rebind(familyID)
		return
	}
	s.ops = inventory.NewOperations(s.items, familyID, s.itemOpts...)
}

// claimRedirect marks the in-flight redirect as processed. Exactly one
// caller wins.
func (s *Session) claimRedirect(path string) bool {
	s.mu.Lock()
	won := s.redirect != redirectClaimed
	if won {
		s.redirect = redirectClaimed
	}
	s.mu.Unlock()

	s.metrics.RedirectClaim(path, won)
	return won
}

// releaseRedirect returns a pending redirect to idle when nothing claimed it.
func (s *Session) releaseRedirect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redirect == redirectPending {
		s.redirect = redirectIdle
	}
}

func (s *Session) observe(identity *auth.Identity) {
	s.mu.Lock()
	if identity == nil {
		s.identity = nil
	} else {
		id := *identity
		s.identity = &id
	}
	s.mu.Unlock()
}

func (s *Session) finishLoading() {
	s.mu.Lock()
	s.isLoading = false
	s.mu.Unlock()
	s.notify()
}

func (s *Session) finishRedirectProcessing() {
	s.mu.Lock()
	s.isProcessingRedirect = false
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setProcessingRedirect(v bool) {
	s.mu.Lock()
	s.isProcessingRedirect = v
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setAuthenticating(v bool) {
	s.mu.Lock()
	s.isAuthenticating = v
	s.mu.Unlock()
	s.notify()
}

func (s *Session) transitioned(phase Phase) {
	s.metrics.SessionTransition(string(phase))
	s.logger.Debug("Session phase", "phase", phase)
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:                s.phase,
		IsLoading:            s.isLoading,
		IsAuthenticating:     s.isAuthenticating,
		IsProcessingRedirect: s.isProcessingRedirect,
		Token:                s.token,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
		snap.FamilyID = u.FamilyID
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	if s.pendingSetup != nil {
		p := *s.pendingSetup
		snap.PendingSetup = &p
	}
	return snap
}

func validateSetup(email, username string) error {
	if err := models.ValidateVar(email, "required,email"); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "A valid email is required.", err)
	}
	if username == "" {
		return apperr.New(apperr.InvalidInput, "Please enter a username.")
	}
	return nil
}
