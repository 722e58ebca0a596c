package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cli/browser"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
)

// OpenInBrowser opens url with the system browser without writing to the
// terminal the program is drawing on.
func OpenInBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// Run starts the full-screen program and blocks until it exits or ctx is
// cancelled. Panics go to the controller's error sink instead of the
// terminal.
func Run(ctx context.Context, ctrl *controller.Controller, surface *Surface) (err error) {
	p := tea.NewProgram(NewModel(ctx, ctrl, surface),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithoutCatchPanics(),
	)
	defer func() {
		if r := recover(); r != nil {
			_ = p.ReleaseTerminal()
			ctrl.ReportError("terminal ui", fmt.Errorf("panic: %v", r))
			err = fmt.Errorf("terminal ui: %w", tea.ErrProgramPanic)
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		ctrl.ReportError("terminal ui", err)
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}
