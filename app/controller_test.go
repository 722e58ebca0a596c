package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hsowda/SillySopapillaAccess-2/auth"
	"github.com/hsowda/SillySopapillaAccess-2/controller"
	"github.com/hsowda/SillySopapillaAccess-2/embed"
)

type recordingPage struct {
	alerts    []string
	notices   []controller.Notice
	navigated []string
	tabs      []string
}

func (p *recordingPage) Alert(message string) { p.alerts = append(p.alerts, message) }
func (p *recordingPage) InsertNotice(_ string, n controller.Notice) {
	p.notices = append(p.notices, n)
}
func (p *recordingPage) Navigate(path string) { p.navigated = append(p.navigated, path) }
func (p *recordingPage) OpenTab(url string) error {
	p.tabs = append(p.tabs, url)
	return nil
}

type recordingModal struct{ visible bool }

func (m *recordingModal) Show() { m.visible = true }
func (m *recordingModal) Hide() { m.visible = false }

type recordingFrame struct{ src string }

func (f *recordingFrame) SetSource(url string) { f.src = url }
func (f *recordingFrame) Source() string       { return f.src }

// The session controller driven against the real router over HTTP.
func TestControllerAgainstServer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	backend, err := controller.NewHTTPBackend(env.server.URL, nil)
	require.NoError(t, err)

	page := &recordingPage{}
	contentModal := &recordingModal{}
	contentFrame := &recordingFrame{}
	mailModal := &recordingModal{}
	var slept time.Duration

	ctrl, err := controller.New(controller.Config{}, controller.Bindings{
		Page:         page,
		ContentModal: contentModal,
		ContentFrame: contentFrame,
		MailModal:    mailModal,
		MailFrame:    &recordingFrame{},
	}, backend,
		controller.WithLogger(zaptest.NewLogger(t)),
		controller.WithProber(backend),
		controller.WithSleep(func(_ context.Context, d time.Duration) error {
			slept += d
			return nil
		}),
	)
	require.NoError(t, err)

	ctrl.HandleLoginSubmit(ctx, controller.Credentials{Email: auth.SeedEmail, Password: "wrong"})
	require.Len(t, page.notices, 1)
	require.Equal(t, "Invalid email or password", page.notices[0].Text)
	require.False(t, contentModal.visible)

	ctrl.HandleLoginSubmit(ctx, controller.Credentials{Email: auth.SeedEmail, Password: auth.SeedPassword})
	require.Empty(t, page.alerts)
	require.Equal(t, testRedirectURL, contentFrame.src)
	require.True(t, contentModal.visible)

	env.checker.result = embed.Result{Status: embed.Blocked, Reason: "X-Frame-Options: DENY"}
	ctrl.HandleFrameLoad(ctx, contentFrame, testRedirectURL)
	require.Equal(t, []string{testRedirectURL}, page.tabs)

	ctrl.HandleLogout(ctx)
	require.Empty(t, page.alerts)
	require.False(t, contentModal.visible)
	require.Equal(t, 300*time.Millisecond, slept)
	require.Equal(t, []string{"/login"}, page.navigated)

	// The cookie is gone, so the embed check now fails and falls back.
	ctrl.HandleFrameLoad(ctx, contentFrame, testRedirectURL)
	require.Len(t, page.tabs, 2)
}
