package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
)

type field int

const (
	fieldEmail field = iota
	fieldPassword
	fieldRemember
	fieldCount
)

// Model is the bubbletea model of the login portal.
type Model struct {
	ctx     context.Context
	ctrl    *controller.Controller
	surface *Surface

	email    string
	password string
	remember bool
	focus    field

	inFlight int
	lastAct  string
	lastGen  int

	width, height int
}

// NewModel builds the model. Handlers run with ctx so cancelling it aborts
// in-flight requests.
func NewModel(ctx context.Context, ctrl *controller.Controller, surface *Surface) Model {
	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		surface: surface,
		lastGen: surface.Snapshot().Generation,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update reports a panic to the controller's error sink and keeps the
// previous model so the program stays usable.
func (m Model) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.ctrl.ReportError("terminal update", fmt.Errorf("panic: %v", r))
			next, cmd = m, nil
		}
	}()
	return m.update(msg)
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case actionDoneMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		view := m.surface.Snapshot()
		if view.Generation != m.lastGen {
			// A navigation reloads the page, form included.
			m.lastGen = view.Generation
			m.email, m.password, m.remember, m.focus = "", "", false, fieldEmail
		}
		if msg.action == "login" && view.ContentOpen && view.ContentURL != "" {
			return m, func() tea.Msg { return frameLoadedMsg{} }
		}

	case frameLoadedMsg:
		return m.runFrameLoad()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.surface.Snapshot()
	modalOpen := view.ContentOpen || view.MailOpen

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+l":
		return m.run("logout", m.ctrl.HandleLogout)
	case "ctrl+g":
		return m.run("mail", m.ctrl.HandleMailAction)
	case "ctrl+o":
		// Open the visible frame's page outside the terminal.
		if view.MailOpen {
			return m.runFrameFailure(true, view.MailURL)
		}
		if view.ContentOpen {
			return m.runFrameFailure(false, view.ContentURL)
		}
		return m, nil
	case "esc":
		if modalOpen {
			m.surface.CloseModals()
		} else {
			m.surface.DismissAlert()
		}
		return m, nil
	case "ctrl+x":
		m.surface.DismissNotice()
		return m, nil
	}

	if modalOpen {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % fieldCount
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus + fieldCount - 1) % fieldCount
	case tea.KeyEnter:
		creds := controller.Credentials{Email: m.email, Password: m.password, Remember: m.remember}
		return m.run("login", func(ctx context.Context) { m.ctrl.HandleLoginSubmit(ctx, creds) })
	case tea.KeyBackspace:
		m.deleteRune()
	case tea.KeySpace:
		if m.focus == fieldRemember {
			m.remember = !m.remember
		} else {
			m.insert(" ")
		}
	case tea.KeyRunes:
		m.insert(string(msg.Runes))
	}
	return m, nil
}

func (m *Model) insert(s string) {
	switch m.focus {
	case fieldEmail:
		m.email += s
	case fieldPassword:
		m.password += s
	}
}

func (m *Model) deleteRune() {
	trim := func(s string) string {
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		return string(r[:len(r)-1])
	}
	switch m.focus {
	case fieldEmail:
		m.email = trim(m.email)
	case fieldPassword:
		m.password = trim(m.password)
	}
}

// run executes a controller handler off the UI loop. Every key press starts
// its own invocation.
func (m Model) run(action string, handler func(ctx context.Context)) (tea.Model, tea.Cmd) {
	m.inFlight++
	m.lastAct = action
	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		func() {
			defer ctrl.Recover("terminal " + action)
			handler(ctx)
		}()
		return actionDoneMsg{action: action}
	}
}

func (m Model) runFrameLoad() (tea.Model, tea.Cmd) {
	frame, fallback := m.surface.Bindings().ContentFrame, m.surface.Snapshot().ContentURL
	return m.run("frame check", func(ctx context.Context) { m.ctrl.HandleFrameLoad(ctx, frame, fallback) })
}

func (m Model) runFrameFailure(mail bool, fallback string) (tea.Model, tea.Cmd) {
	bindings := m.surface.Bindings()
	frame := bindings.ContentFrame
	if mail {
		frame = bindings.MailFrame
	}
	return m.run("open in browser", func(context.Context) { m.ctrl.HandleFrameFailure(frame, fallback) })
}
