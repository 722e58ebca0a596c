package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
	"github.com/hsowda/SillySopapillaAccess-2/embed"
)

type scriptedBackend struct {
	login     *controller.LoginResponse
	loginErr  error
	logoutErr error
	got       []controller.Credentials
}

func (b *scriptedBackend) Login(_ context.Context, creds controller.Credentials) (*controller.LoginResponse, error) {
	b.got = append(b.got, creds)
	return b.login, b.loginErr
}

func (b *scriptedBackend) Logout(context.Context) error { return b.logoutErr }

type blockingChecker struct{ calls int }

func (c *blockingChecker) TryEmbed(_ context.Context, target string) (embed.Result, error) {
	c.calls++
	return embed.Result{URL: target, Status: embed.Blocked, Reason: "X-Frame-Options: DENY"}, nil
}

func newTestModel(t *testing.T, backend controller.Backend, cfg controller.Config, opts ...controller.Option) (Model, *Surface) {
	t.Helper()
	surface := NewSurface(nil)
	opts = append(opts, controller.WithSleep(func(context.Context, time.Duration) error { return nil }))
	ctrl, err := controller.New(cfg, surface.Bindings(), backend, opts...)
	require.NoError(t, err)
	return NewModel(context.Background(), ctrl, surface), surface
}

// press feeds keys and runs each resulting command to completion, feeding
// its message back, the way the bubbletea runtime would.
func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		m = drain(t, m, k)
	}
	return m
}

func drain(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		if out == nil {
			break
		}
		next, cmd = m.Update(out)
		m = next.(Model)
	}
	return m
}

func typed(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestLoginSuccessOpensContentAndProbes(t *testing.T) {
	backend := &scriptedBackend{login: &controller.LoginResponse{Success: true, RedirectURL: "https://site.example.com"}}
	checker := &blockingChecker{}
	m, surface := newTestModel(t, backend, controller.Config{}, controller.WithProber(checker))

	m = press(t, m, typed("a@example.com"), tab, typed("pw"), tab, space, enter)

	require.Len(t, backend.got, 1)
	require.Equal(t, controller.Credentials{Email: "a@example.com", Password: "pw", Remember: true}, backend.got[0])
	require.Zero(t, m.inFlight)

	view := surface.Snapshot()
	require.True(t, view.ContentOpen)
	require.Equal(t, "https://site.example.com", view.ContentURL)
	require.Equal(t, 1, checker.calls, "a shown frame is probed")
	require.Equal(t, []string{"https://site.example.com"}, view.Tabs, "blocked frame falls back to a tab")
	require.Contains(t, m.View(), "https://site.example.com")
}

func TestRepeatedSubmitsEachSendARequest(t *testing.T) {
	backend := &scriptedBackend{login: &controller.LoginResponse{Success: false, Message: "Invalid email or password"}}
	m, surface := newTestModel(t, backend, controller.Config{})
	m = press(t, m, typed("a@example.com"), tab, typed("pw"))

	next, first := m.Update(enter)
	m = next.(Model)
	next, second := m.Update(enter)
	m = next.(Model)
	require.Equal(t, 2, m.inFlight)

	m = drain(t, m, first())
	m = drain(t, m, second())
	require.Zero(t, m.inFlight)
	require.Len(t, backend.got, 2)
	require.Len(t, surface.Snapshot().Notices, 2)
}

func TestLoginFailureShowsNotice(t *testing.T) {
	backend := &scriptedBackend{login: &controller.LoginResponse{Success: false, Message: "<b>Invalid</b> email or password"}}
	m, surface := newTestModel(t, backend, controller.Config{})

	m = press(t, m, typed("a@example.com"), tab, typed("bad"), enter)

	view := surface.Snapshot()
	require.False(t, view.ContentOpen)
	require.Len(t, view.Notices, 1)
	require.Equal(t, "Invalid email or password", view.Notices[0].Text)
	require.Contains(t, m.View(), "Invalid email or password")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Empty(t, surface.Snapshot().Notices)
}

func TestEmptyFieldsAlertWithoutRequest(t *testing.T) {
	backend := &scriptedBackend{}
	m, surface := newTestModel(t, backend, controller.Config{})

	m = press(t, m, typed("a@example.com"), enter)

	require.Empty(t, backend.got)
	require.Equal(t, controller.MsgFillAllFields, surface.Snapshot().Alert)
	require.Contains(t, m.View(), controller.MsgFillAllFields)

	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Empty(t, surface.Snapshot().Alert)
}

func TestLogoutResetsPage(t *testing.T) {
	backend := &scriptedBackend{login: &controller.LoginResponse{Success: true, RedirectURL: "https://site.example.com"}}
	m, surface := newTestModel(t, backend, controller.Config{})

	m = press(t, m, typed("a@example.com"), tab, typed("pw"), enter)
	require.True(t, surface.Snapshot().ContentOpen)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	view := surface.Snapshot()
	require.False(t, view.ContentOpen)
	require.Equal(t, "/login", view.Path)
	require.Empty(t, m.email)

	backend.logoutErr = errors.New("down")
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Equal(t, controller.MsgLogoutFailed, surface.Snapshot().Alert)
}

func TestMailStrategies(t *testing.T) {
	t.Run("embed", func(t *testing.T) {
		m, surface := newTestModel(t, &scriptedBackend{}, controller.Config{
			Mail: controller.MailConfig{Strategy: controller.EmbedModal, WebmailURL: "https://mail.example.com"},
		})
		m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
		view := surface.Snapshot()
		require.True(t, view.MailOpen)
		require.Equal(t, "https://mail.example.com", view.MailURL)

		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
		view = surface.Snapshot()
		require.False(t, view.MailOpen, "failing mail frame closes its modal")
		require.Equal(t, []string{"https://mail.example.com"}, view.Tabs)
	})

	t.Run("new tab", func(t *testing.T) {
		m, surface := newTestModel(t, &scriptedBackend{}, controller.Config{
			Mail: controller.MailConfig{Strategy: controller.NewTabLink, WebmailURL: "https://mail.example.com"},
		})
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
		require.Equal(t, []string{"https://mail.example.com"}, surface.Snapshot().Tabs)
	})
}

func TestPanicInHandlerIsContained(t *testing.T) {
	m, surface := newTestModel(t, nilLoginBackend{}, controller.Config{})

	m = press(t, m, typed("a@example.com"), tab, typed("pw"), enter)

	require.Zero(t, m.inFlight, "the model recovers and accepts new input")
	require.Equal(t, controller.MsgGeneric, surface.Snapshot().Alert)
}

// nilLoginBackend returns neither a response nor an error.
type nilLoginBackend struct{}

func (nilLoginBackend) Login(context.Context, controller.Credentials) (*controller.LoginResponse, error) {
	return nil, nil
}
func (nilLoginBackend) Logout(context.Context) error { return nil }

func TestPanicInUpdateGoesToErrorSink(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctrl, err := controller.New(controller.Config{}, NewSurface(nil).Bindings(), &scriptedBackend{}, controller.WithLogger(zap.New(core)))
	require.NoError(t, err)

	// a model without a surface panics on the first key it handles
	broken := Model{ctx: context.Background(), ctrl: ctrl}
	require.NotPanics(t, func() {
		next, cmd := broken.Update(typed("a"))
		require.Nil(t, cmd)
		require.IsType(t, Model{}, next)
	})
	require.NotPanics(t, func() {
		require.Contains(t, broken.View(), controller.MsgGeneric)
	})

	entries := logs.FilterMessage("global error").All()
	require.Len(t, entries, 2)
	require.Equal(t, "terminal update", entries[0].ContextMap()["source"])
	require.Equal(t, "terminal view", entries[1].ContextMap()["source"])
}
