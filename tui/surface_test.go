package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
)

func TestSurfacePorts(t *testing.T) {
	var opened []string
	s := NewSurface(func(url string) error {
		opened = append(opened, url)
		if url == "https://broken.example.com" {
			return errors.New("no browser")
		}
		return nil
	})
	b := s.Bindings()
	require.Same(t, b.ContentFrame, s.Bindings().ContentFrame)

	b.Page.InsertNotice("somewhereElse", controller.Notice{Text: "ignored"})
	b.Page.InsertNotice(controller.LoginFormID, controller.Notice{Text: "first", Dismissible: true})
	b.Page.InsertNotice(controller.LoginFormID, controller.Notice{Text: "sticky"})
	b.Page.InsertNotice(controller.LoginFormID, controller.Notice{Text: "last", Dismissible: true})
	s.DismissNotice()
	view := s.Snapshot()
	require.Len(t, view.Notices, 2)
	require.Equal(t, "first", view.Notices[0].Text)
	require.Equal(t, "sticky", view.Notices[1].Text)

	b.ContentFrame.SetSource("https://site.example.com")
	b.ContentModal.Show()
	require.Equal(t, "https://site.example.com", b.ContentFrame.Source())
	require.True(t, s.Snapshot().ContentOpen)

	require.NoError(t, b.Page.OpenTab("https://ok.example.com"))
	require.Error(t, b.Page.OpenTab("https://broken.example.com"))
	require.Equal(t, []string{"https://ok.example.com", "https://broken.example.com"}, opened)

	gen := s.Snapshot().Generation
	b.Page.Alert("boom")
	b.Page.Navigate("/login")
	view = s.Snapshot()
	require.Equal(t, gen+1, view.Generation)
	require.Empty(t, view.Alert)
	require.Empty(t, view.Notices)
	require.False(t, view.ContentOpen)
	require.Empty(t, b.ContentFrame.Source())
	require.Len(t, view.Tabs, 2, "tabs live outside the page")
}
