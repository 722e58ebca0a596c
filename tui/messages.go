package tui

// A message to indicate a controller action finished and the surface changed.
type actionDoneMsg struct {
	action string
}

// frameLoadedMsg stands in for the iframe load event: the content frame
// received a new source and should be probed.
type frameLoadedMsg struct{}
