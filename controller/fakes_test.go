package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/hsowda/SillySopapillaAccess-2/embed"
)

type insertedNotice struct {
	beforeID string
	notice   Notice
}

type fakePage struct {
	mu        sync.Mutex
	alerts    []string
	notices   []insertedNotice
	navigated []string
	tabs      []string
	tabErr    error
	panicOn   string
}

func (p *fakePage) Alert(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
}

func (p *fakePage) InsertNotice(beforeID string, n Notice) {
	if p.panicOn == "notice" {
		panic("notice widget missing")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, insertedNotice{beforeID: beforeID, notice: n})
}

func (p *fakePage) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, path)
}

func (p *fakePage) OpenTab(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tabs = append(p.tabs, url)
	return p.tabErr
}

type fakeModal struct {
	visible bool
	shows   int
	hides   int
	panics  bool
}

func (m *fakeModal) Show() {
	if m.panics {
		panic("modal not initialised")
	}
	m.visible = true
	m.shows++
}

func (m *fakeModal) Hide() {
	m.visible = false
	m.hides++
}

type fakeFrame struct {
	src string
}

func (f *fakeFrame) SetSource(url string) { f.src = url }
func (f *fakeFrame) Source() string       { return f.src }

type fakeBackend struct {
	resp      *LoginResponse
	err       error
	logoutErr error
	logins    []Credentials
	logouts   int
}

func (b *fakeBackend) Login(_ context.Context, creds Credentials) (*LoginResponse, error) {
	b.logins = append(b.logins, creds)
	return b.resp, b.err
}

func (b *fakeBackend) Logout(context.Context) error {
	b.logouts++
	return b.logoutErr
}

type fakeProber struct {
	status embed.Status
	err    error
	calls  []string
}

func (p *fakeProber) TryEmbed(_ context.Context, target string) (embed.Result, error) {
	p.calls = append(p.calls, target)
	return embed.Result{URL: target, Status: p.status, Reason: "test"}, p.err
}

var errNetwork = errors.New("network down")

type fixture struct {
	page         *fakePage
	contentModal *fakeModal
	contentFrame *fakeFrame
	mailModal    *fakeModal
	mailFrame    *fakeFrame
}

func newFixture() *fixture {
	return &fixture{
		page:         &fakePage{},
		contentModal: &fakeModal{},
		contentFrame: &fakeFrame{},
		mailModal:    &fakeModal{},
		mailFrame:    &fakeFrame{},
	}
}

func (f *fixture) bindings() Bindings {
	return Bindings{
		Page:         f.page,
		ContentModal: f.contentModal,
		ContentFrame: f.contentFrame,
		MailModal:    f.mailModal,
		MailFrame:    f.mailFrame,
	}
}
