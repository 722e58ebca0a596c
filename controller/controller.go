// Package controller drives the login, logout, mail and embedded-content flow
// of the portal against abstract UI ports. A front-end (browser bridge,
// terminal UI, test fake) implements Page, Modal and Frame; the controller
// owns the sequencing and error handling.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/embed"
)

// Element ids the controller refers to when talking to the Page port.
const (
	LoginFormID            = "loginForm"
	EmailFieldID           = "email"
	PasswordFieldID        = "password"
	RememberFieldID        = "remember"
	ExternalContentModalID = "externalContentModal"
	ExternalContentFrameID = "externalContentFrame"
	LogoutButtonID         = "logoutButton"
	LogoutButtonClass      = "logout-btn"
	MailButtonID           = "gmailButton"
	MailModalID            = "gmailModal"
)

// User-facing messages.
const (
	MsgFillAllFields = "Please fill in all fields"
	MsgLoginFailed   = "An error occurred during login. Please try again."
	MsgLogoutFailed  = "An error occurred during logout. Please try again."
	MsgGeneric       = "An error occurred. Please try again."
)

const (
	defaultLoginPath   = "/login"
	defaultLogoutDelay = 300 * time.Millisecond
	defaultWebmailURL  = "https://gmail.com"
)

// Credentials are read from the form once per submit and never stored.
type Credentials struct {
	Email    string
	Password string
	Remember bool
}

// NoticeLevel mirrors the alert styles a page can render.
type NoticeLevel string

const (
	NoticeDanger  NoticeLevel = "danger"
	NoticeSuccess NoticeLevel = "success"
)

// Notice is an inline, dismissible message. Text is plain text with any
// markup already stripped; renderers must still escape it.
type Notice struct {
	Level       NoticeLevel
	Text        string
	Dismissible bool
}

// Page is the document-level UI port.
type Page interface {
	// Alert shows a blocking message.
	Alert(message string)
	// InsertNotice places a notice immediately before the element with the given id.
	InsertNotice(beforeID string, n Notice)
	// Navigate replaces the current page.
	Navigate(path string)
	// OpenTab opens the URL in a new browser tab or window.
	OpenTab(url string) error
}

// Modal is a dialog owned by the UI toolkit.
type Modal interface {
	Show()
	Hide()
}

// Frame is an embedded-content element.
type Frame interface {
	SetSource(url string)
	Source() string
}

// Bindings are the UI elements the controller is wired to. Modals and frames
// are optional; a nil binding disables the steps that need it.
type Bindings struct {
	Page         Page
	ContentModal Modal
	ContentFrame Frame
	MailModal    Modal
	MailFrame    Frame
}

// Config parameterises endpoints, delays and the mail action.
type Config struct {
	// LoginPath is where the browser is sent after logout.
	LoginPath string
	// LogoutDelay lets a modal close transition finish before navigating.
	// Zero uses 300ms; a negative value disables the wait.
	LogoutDelay time.Duration
	Mail        MailConfig
}

// Controller is the session UI controller.
type Controller struct {
	cfg     Config
	ui      Bindings
	backend Backend
	prober  embed.Checker
	logger  *zap.Logger
	policy  *bluemonday.Policy
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger injects the logger used for every caught error.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProber enables the post-load embeddability check.
func WithProber(p embed.Checker) Option {
	return func(c *Controller) { c.prober = p }
}

// WithSleep replaces the wait used for the logout delay.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// New validates the configuration and returns a controller.
func New(cfg Config, ui Bindings, backend Backend, opts ...Option) (*Controller, error) {
	if ui.Page == nil {
		return nil, errors.New("controller: page binding is required")
	}
	if backend == nil {
		return nil, errors.New("controller: backend is required")
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginPath
	}
	if cfg.LogoutDelay == 0 {
		cfg.LogoutDelay = defaultLogoutDelay
	}
	if cfg.Mail.WebmailURL == "" {
		cfg.Mail.WebmailURL = defaultWebmailURL
	}
	if err := cfg.Mail.Strategy.validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:     cfg,
		ui:      ui,
		backend: backend,
		logger:  zap.NewNop(),
		policy:  bluemonday.StrictPolicy(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration after defaults.
func (c *Controller) Config() Config { return c.cfg }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m MailStrategy) validate() error {
	switch m {
	case EmbedModal, MailtoLink, NewTabLink:
		return nil
	default:
		return fmt.Errorf("controller: unknown mail strategy %d", int(m))
	}
}
