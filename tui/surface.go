package tui

import (
	"sync"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
)

const (
	modalContent = "content"
	modalMail    = "mail"
)

// Surface is the terminal rendition of the portal page. The controller talks
// to it through the Page, Modal and Frame ports from command goroutines; the
// bubbletea model reads it through Snapshot when rendering.
type Surface struct {
	mu      sync.Mutex
	path    string
	alert   string
	notices []controller.Notice
	visible map[string]bool
	sources map[string]string
	tabs    []string
	navGen  int
	openTab func(url string) error

	bindings controller.Bindings
}

// NewSurface returns a surface showing the login path. openTab launches a
// URL outside the terminal; nil records the URL only.
func NewSurface(openTab func(url string) error) *Surface {
	s := &Surface{
		path:    "/login",
		visible: map[string]bool{},
		sources: map[string]string{},
		openTab: openTab,
	}
	s.bindings = controller.Bindings{
		Page:         s,
		ContentModal: &modal{s: s, name: modalContent},
		ContentFrame: &frame{s: s, name: modalContent},
		MailModal:    &modal{s: s, name: modalMail},
		MailFrame:    &frame{s: s, name: modalMail},
	}
	return s
}

// Bindings exposes the surface as controller ports. The same port values are
// returned on every call.
func (s *Surface) Bindings() controller.Bindings {
	return s.bindings
}

func (s *Surface) Alert(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = message
}

// InsertNotice keeps notices in display order above the login form.
func (s *Surface) InsertNotice(beforeID string, n controller.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if beforeID != controller.LoginFormID {
		return
	}
	s.notices = append(s.notices, n)
}

// Navigate resets the page as a browser would on a full load.
func (s *Surface) Navigate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.alert = ""
	s.notices = nil
	s.visible = map[string]bool{}
	s.sources = map[string]string{}
	s.navGen++
}

func (s *Surface) OpenTab(url string) error {
	s.mu.Lock()
	s.tabs = append(s.tabs, url)
	open := s.openTab
	s.mu.Unlock()

	if open == nil {
		return nil
	}
	return open(url)
}

// DismissAlert clears the alert line.
func (s *Surface) DismissAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = ""
}

// DismissNotice removes the newest dismissible notice.
func (s *Surface) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.notices) - 1; i >= 0; i-- {
		if s.notices[i].Dismissible {
			s.notices = append(s.notices[:i], s.notices[i+1:]...)
			return
		}
	}
}

// CloseModals hides every modal, as the close button would.
func (s *Surface) CloseModals() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = map[string]bool{}
}

// View is a copy of the surface state.
type View struct {
	Path        string
	Alert       string
	Notices     []controller.Notice
	ContentOpen bool
	MailOpen    bool
	ContentURL  string
	MailURL     string
	Tabs        []string
	// Generation increases on every navigation.
	Generation int
}

func (s *Surface) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Path:        s.path,
		Alert:       s.alert,
		Notices:     append([]controller.Notice(nil), s.notices...),
		ContentOpen: s.visible[modalContent],
		MailOpen:    s.visible[modalMail],
		ContentURL:  s.sources[modalContent],
		MailURL:     s.sources[modalMail],
		Tabs:        append([]string(nil), s.tabs...),
		Generation:  s.navGen,
	}
}

type modal struct {
	s    *Surface
	name string
}

func (m *modal) Show() {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.visible[m.name] = true
}

func (m *modal) Hide() {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.visible, m.name)
}

type frame struct {
	s    *Surface
	name string
}

func (f *frame) SetSource(url string) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.sources[f.name] = url
}

func (f *frame) Source() string {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.sources[f.name]
}
