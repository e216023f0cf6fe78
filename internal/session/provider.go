// Package session hydrates the signed-in user's session, profile and firm
// settings, provisioning missing rows, with a hard deadline on loading.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/pkg/logger"
)

const (
	DefaultTimeout = 8 * time.Second
	DefaultRole    = "attorney"
)

// AuthClient is the identity provider as seen by the bootstrap.
type AuthClient interface {
	GetSession(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	Subscribe(l auth.Listener) func()
}

// ProfileStore reads and creates profile rows. GetProfile returns
// database.ErrNotFound when no row exists.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*database.Profile, error)
	CreateProfile(ctx context.Context, p *database.Profile) error
}

// FirmStore reads and creates firm settings. GetFirmSettings returns
// database.ErrNotFound when no row exists.
type FirmStore interface {
	GetFirmSettings(ctx context.Context, organizationID string) (*database.FirmSettings, error)
	CreateFirmSettings(ctx context.Context, s *database.FirmSettings) error
}

type Config struct {
	// Timeout bounds how long Loading stays true.
	Timeout time.Duration
}

// State is a snapshot of the bootstrap.
type State struct {
	Session      *auth.Session          `json:"session"`
	User         *auth.User             `json:"user"`
	Profile      *database.Profile      `json:"profile"`
	FirmSettings *database.FirmSettings `json:"firm_settings"`
	Loading      bool                   `json:"loading"`
	Error        string                 `json:"error,omitempty"`
}

// Provider owns one bootstrap. It is not reusable after Close.
type Provider struct {
	auth     AuthClient
	profiles ProfileStore
	firms    FirmStore
	cfg      Config
	logger   *logger.Logger

	mu          sync.Mutex
	state       State
	token       string
	started     bool
	closed      bool
	provisioned map[string]bool
	// generation advances on every sign-out.
	generation uint64

	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	finishOnce  sync.Once
	timer       *time.Timer
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewProvider(a AuthClient, profiles ProfileStore, firms FirmStore, cfg Config, log *logger.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Provider{
		auth:        a,
		profiles:    profiles,
		firms:       firms,
		cfg:         cfg,
		logger:      log,
		provisioned: make(map[string]bool),
		done:        make(chan struct{}),
	}
}

// Start begins loading the session for token in the background. Calling it
// more than once has no effect.
func (p *Provider) Start(ctx context.Context, token string) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.token = token
	p.state.Loading = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.unsubscribe = p.auth.Subscribe(p.onAuthEvent)
	p.timer = time.AfterFunc(p.cfg.Timeout, p.onTimeout)
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.load(p.ctx, token)
	}()
}

// State returns a copy of the current state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Wait blocks until loading finishes or times out.
func (p *Provider) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bootstrap starts the provider and waits for loading to end.
func (p *Provider) Bootstrap(ctx context.Context, token string) (State, error) {
	p.Start(ctx, token)
	if err := p.Wait(ctx); err != nil {
		return p.State(), err
	}
	return p.State(), nil
}

// SignOut revokes the session and clears local state.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if err := p.auth.SignOut(ctx, token); err != nil {
		p.logger.Error("Sign out failed", "error", err)
		return err
	}
	p.clear()
	return nil
}

// Close stops the listener and timer and waits for background loads.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	unsubscribe, timer, cancel := p.unsubscribe, p.timer, p.cancel
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Provider) load(ctx context.Context, token string) {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	sess, err := p.auth.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			p.finish("anonymous")
			return
		}
		p.fail("get session", err)
		p.finish("error")
		return
	}

	if !p.setSessionIfCurrent(gen, sess) {
		p.logger.Info("Signed out during bootstrap", "user_id", sess.User.ID)
		p.finish("signed_out")
		return
	}
	if p.provision(ctx, sess.User) {
		p.finish("ok")
		return
	}
	p.finish("error")
}

// provision loads the profile and firm settings for user, creating either
// when missing. It reports whether both loaded.
func (p *Provider) provision(ctx context.Context, user auth.User) bool {
	profile, err := p.profiles.GetProfile(ctx, user.ID)
	switch {
	case err == nil:
	case database.IsNotFound(err):
		profile, err = p.createProfile(ctx, user)
		if err != nil {
			p.fail("create profile", err)
			return false
		}
	default:
		p.fail("fetch profile", err)
		return false
	}
	if !p.setProfile(user.ID, profile) {
		return false
	}

	firm, err := p.firms.GetFirmSettings(ctx, user.ID)
	switch {
	case err == nil:
	case database.IsNotFound(err):
		firm = &database.FirmSettings{OrganizationID: user.ID}
		if err := p.firms.CreateFirmSettings(ctx, firm); err != nil {
			p.fail("create firm settings", err)
			return false
		}
		p.logger.Info("Created firm settings", "user_id", user.ID)
	default:
		p.fail("fetch firm settings", err)
		return false
	}

	p.mu.Lock()
	if p.state.User != nil && p.state.User.ID == user.ID {
		p.state.FirmSettings = firm
	}
	p.mu.Unlock()
	return true
}

// createProfile inserts the default profile at most once per user for the
// lifetime of the provider.
func (p *Provider) createProfile(ctx context.Context, user auth.User) (*database.Profile, error) {
	p.mu.Lock()
	if p.provisioned[user.ID] {
		p.mu.Unlock()
		return p.profiles.GetProfile(ctx, user.ID)
	}
	p.provisioned[user.ID] = true
	p.mu.Unlock()

	role := DefaultRole
	profile := &database.Profile{
		Base:  database.Base{ID: user.ID},
		Email: user.Email,
		Role:  &role,
	}
	if err := p.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	metrics.RecordProfileProvisioned()
	p.logger.Info("Created profile", "user_id", user.ID)
	return profile, nil
}

func (p *Provider) onAuthEvent(event auth.Event, sess *auth.Session) {
	if sess == nil {
		return
	}

	p.mu.Lock()
	relevant := sess.Token == p.token || (p.state.User != nil && p.state.User.ID == sess.User.ID)
	ctx := p.ctx
	p.mu.Unlock()
	if !relevant {
		return
	}

	switch event {
	case auth.SignedOut:
		p.clear()
	case auth.SignedIn:
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.token = sess.Token
		p.wg.Add(1)
		p.mu.Unlock()
		p.setSession(sess)

		go func() {
			defer p.wg.Done()
			p.provision(ctx, sess.User)
		}()
	}
}

func (p *Provider) onTimeout() {
	p.mu.Lock()
	loading := p.state.Loading
	p.mu.Unlock()

	if loading {
		p.logger.Warn("Session bootstrap timed out", "timeout", p.cfg.Timeout.String())
		p.finish("timeout")
	}
}

func (p *Provider) finish(outcome string) {
	p.finishOnce.Do(func() {
		p.mu.Lock()
		p.state.Loading = false
		timer := p.timer
		p.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		metrics.RecordBootstrap(outcome)
		close(p.done)
	})
}

func (p *Provider) setSession(sess *auth.Session) {
	user := sess.User
	p.mu.Lock()
	p.state.Session = sess
	p.state.User = &user
	p.mu.Unlock()
}

// setSessionIfCurrent stores sess unless a sign-out happened after gen was
// read.
func (p *Provider) setSessionIfCurrent(gen uint64, sess *auth.Session) bool {
	user := sess.User
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return false
	}
	p.state.Session = sess
	p.state.User = &user
	return true
}

// setProfile stores profile unless the user signed out meanwhile.
func (p *Provider) setProfile(userID string, profile *database.Profile) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.User == nil || p.state.User.ID != userID {
		return false
	}
	p.state.Profile = profile
	return true
}

func (p *Provider) clear() {
	p.mu.Lock()
	p.generation++
	p.state.Session = nil
	p.state.User = nil
	p.state.Profile = nil
	p.state.FirmSettings = nil
	p.mu.Unlock()
}

func (p *Provider) fail(op string, err error) {
	p.logger.Error("Session bootstrap failed", "op", op, "error", err)
	p.mu.Lock()
	p.state.Error = err.Error()
	p.mu.Unlock()
}
