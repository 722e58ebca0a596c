package tui

import "github.com/charmbracelet/lipgloss"

var (
	AppStyle = lipgloss.NewStyle().Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("63")).Foreground(lipgloss.Color("255")).Padding(0, 1)

	// Form
	LabelStyle        = lipgloss.NewStyle().Width(10).Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})
	FieldStyle        = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1).Width(36)
	FocusedFieldStyle = FieldStyle.Copy().BorderForeground(lipgloss.Color("99"))

	// Notices and alerts
	NoticeDangerStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("196")).Foreground(lipgloss.Color("196")).Padding(0, 1)
	NoticeSuccessStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("28")).Foreground(lipgloss.Color("28")).Padding(0, 1)
	AlertStyle         = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("196")).Foreground(lipgloss.Color("255")).Padding(0, 1)

	// Modal
	ModalStyle      = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2)
	ModalTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	URLStyle        = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39"))

	// Status Bar
	StatusBarNormalStyle = lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("250")).Padding(0, 1)
	StatusBarBusyStyle   = lipgloss.NewStyle().Background(lipgloss.Color("28")).Foreground(lipgloss.Color("255")).Padding(0, 1)
)
