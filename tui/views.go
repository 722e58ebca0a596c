package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
)

func (m Model) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			m.ctrl.ReportError("terminal view", fmt.Errorf("panic: %v", r))
			out = AlertStyle.Render(controller.MsgGeneric)
		}
	}()
	return m.render()
}

func (m Model) render() string {
	view := m.surface.Snapshot()

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Silly Sopapilla Access " + view.Path))
	b.WriteString("\n\n")

	if view.Alert != "" {
		b.WriteString(AlertStyle.Render(view.Alert))
		b.WriteString("\n\n")
	}

	switch {
	case view.ContentOpen:
		b.WriteString(renderModal("External content", view.ContentURL))
	case view.MailOpen:
		b.WriteString(renderModal("Mail", view.MailURL))
	default:
		for _, n := range view.Notices {
			b.WriteString(renderNotice(n))
			b.WriteString("\n")
		}
		b.WriteString(m.renderForm())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar(view))
	return AppStyle.Render(b.String())
}

func (m Model) renderForm() string {
	password := strings.Repeat("•", len([]rune(m.password)))
	check := "[ ]"
	if m.remember {
		check = "[x]"
	}

	row := func(label, value string, f field) string {
		style := FieldStyle
		if m.focus == f {
			style = FocusedFieldStyle
		}
		return lipgloss.JoinHorizontal(lipgloss.Center, LabelStyle.Render(label), style.Render(value))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		row("Email", m.email, fieldEmail),
		row("Password", password, fieldPassword),
		row("", check+" Remember me", fieldRemember),
	)
}

func renderNotice(n controller.Notice) string {
	style := NoticeDangerStyle
	if n.Level == controller.NoticeSuccess {
		style = NoticeSuccessStyle
	}
	text := n.Text
	if n.Dismissible {
		text += "  (ctrl+x to dismiss)"
	}
	return style.Render(text)
}

func renderModal(title, url string) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		ModalTitleStyle.Render(title),
		"",
		URLStyle.Render(url),
		"",
		"ctrl+o open in browser · esc close",
	)
	return ModalStyle.Render(body)
}

func (m Model) renderStatusBar(view View) string {
	if m.inFlight > 0 {
		return StatusBarBusyStyle.Render(fmt.Sprintf(" %s... (%d running) ", m.lastAct, m.inFlight))
	}
	hints := "[Tab]:Next [Enter]:Login [Ctrl+G]:Mail [Ctrl+L]:Logout [Ctrl+C]:Quit"
	if len(view.Tabs) > 0 {
		hints += fmt.Sprintf(" | opened %d tab(s)", len(view.Tabs))
	}
	return StatusBarNormalStyle.Render(hints)
}
