package styles

import (
	"charm.land/bubbles/v2/textarea"
	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/task"
)

// Color hex values (used throughout the file)
const (
	ColorAccentBlue      = "#7AA2F7" // Soft blue
	ColorMutedBlue       = "#8B95C1" // Dark blue-grey
	ColorBackgroundAlt   = "#24283B" // Slightly lighter background
	ColorBorderSecondary = "#6B75A8" // Dark blue-grey
	ColorTextPrimary     = "#C0CAF5" // Light blue-white
	ColorTextSecondary   = "#9AA5CE" // Medium blue-grey
	ColorSuccessGreen    = "#9ECE6A" // Soft green
	ColorErrorRed        = "#F7768E" // Soft red
	ColorWarningYellow   = "#E0AF68" // Soft yellow
	ColorInfoCyan        = "#7DCFFF" // Soft cyan
	ColorAgentBadge      = "#BB9AF7" // Soft purple

	// Spinner glow colors (transition from base blue towards white)
	ColorSpinnerDim       = "#9AB8F9"
	ColorSpinnerBright    = "#B8CFFB"
	ColorSpinnerBrightest = "#D6E5FC"

	ColorBackground = "#1A1B26" // Dark blue-black
	ColorSelected   = "#364A82" // Dark blue for selected items
)

var (
	Background    = lipgloss.Color(ColorBackground)
	BackgroundAlt = lipgloss.Color(ColorBackgroundAlt)

	Accent    = lipgloss.Color(ColorAccentBlue)
	AccentDim = lipgloss.Color(ColorMutedBlue)

	Success = lipgloss.Color(ColorSuccessGreen)
	Error   = lipgloss.Color(ColorErrorRed)
	Warning = lipgloss.Color(ColorWarningYellow)
	Info    = lipgloss.Color(ColorInfoCyan)

	TextPrimary   = lipgloss.Color(ColorTextPrimary)
	TextSecondary = lipgloss.Color(ColorTextSecondary)
	TextMuted     = lipgloss.Color(ColorMutedBlue)

	BorderPrimary   = lipgloss.Color(ColorAccentBlue)
	BorderSecondary = lipgloss.Color(ColorBorderSecondary)
	BorderMuted     = lipgloss.Color(ColorBackgroundAlt)
	BorderWarning   = lipgloss.Color(ColorWarningYellow)

	Selected   = lipgloss.Color(ColorSelected)
	SelectedFg = lipgloss.Color(ColorTextPrimary)
	AgentBadge = lipgloss.Color(ColorAgentBadge)
)

// Base Styles
var (
	BaseStyle = lipgloss.NewStyle().Foreground(TextPrimary)
	AppStyle  = BaseStyle.Padding(0, 1, 0, 1)

	HighlightStyle = BaseStyle.Foreground(Accent)
	MutedStyle     = BaseStyle.Foreground(TextMuted)
	SecondaryStyle = BaseStyle.Foreground(TextSecondary)
	BoldStyle      = BaseStyle.Bold(true)
	ItalicStyle    = BaseStyle.Italic(true)

	SuccessStyle = BaseStyle.Foreground(Success)
	ErrorStyle   = BaseStyle.Foreground(Error)
	WarningStyle = BaseStyle.Foreground(Warning)
	InfoStyle    = BaseStyle.Foreground(Info)
)

// Border Styles
var (
	BorderedBoxStyle = BaseStyle.
				Border(lipgloss.RoundedBorder()).
				BorderForeground(BorderSecondary).
				Padding(0, 1)

	BorderedBoxFocusedStyle = BaseStyle.
				Border(lipgloss.RoundedBorder()).
				BorderForeground(BorderPrimary).
				Padding(0, 1)

	UserMessageBorderStyle = BaseStyle.
				Padding(0, 1).
				BorderLeft(true).
				BorderStyle(lipgloss.ThickBorder()).
				BorderForeground(BorderPrimary).
				Bold(true).
				Background(BackgroundAlt)

	AgentMessageStyle = BaseStyle.Padding(0, 1)

	StatusBubbleStyle = BaseStyle.
				Padding(0, 1).
				BorderLeft(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(BorderSecondary)
)

// Dialog Styles
var (
	DialogStyle = BaseStyle.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderSecondary).
			Foreground(TextPrimary).
			Padding(1, 2).
			Align(lipgloss.Left)

	DialogWarningStyle = DialogStyle.BorderForeground(BorderWarning)

	DialogTitleStyle = BaseStyle.
				Bold(true).
				Foreground(TextSecondary).
				Align(lipgloss.Center)

	DialogTitleWarningStyle = DialogTitleStyle.Foreground(Warning)

	DialogContentStyle = BaseStyle.Foreground(TextPrimary)

	DialogOptionsStyle = BaseStyle.
				Foreground(TextMuted).
				Align(lipgloss.Center)

	DialogHelpStyle = BaseStyle.
			Foreground(TextMuted).
			Italic(true)
)

// Side panel styles
var (
	PanelStyle = BaseStyle.
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(BorderSecondary).
			Padding(0, 1)

	PanelTitleStyle = BaseStyle.Bold(true).Foreground(TextSecondary)

	TabActiveStyle   = BaseStyle.Bold(true).Foreground(Accent).Underline(true)
	TabInactiveStyle = MutedStyle

	ButtonStyle = BaseStyle.
			Foreground(Accent).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderSecondary)

	DangerButtonStyle = ButtonStyle.Foreground(Error)

	// SelectionStyle marks the row under the cursor or the current session.
	SelectionStyle = BaseStyle.
			Background(Selected).
			Foreground(SelectedFg)
)

// Input Styles
var (
	InputStyle = textarea.Styles{
		Focused: textarea.StyleState{
			Base:        BaseStyle,
			Placeholder: BaseStyle.Foreground(TextMuted),
		},
		Blurred: textarea.StyleState{
			Base:        BaseStyle,
			Placeholder: BaseStyle.Foreground(TextMuted),
		},
		Cursor: textarea.CursorStyle{
			Color: Accent,
		},
	}
	EditorStyle = BaseStyle.
			Border(lipgloss.RoundedBorder(), true, false, false, false).
			BorderForeground(BorderSecondary)
)

// Notification Styles
var (
	NotificationStyle = BaseStyle.
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Success).
				Padding(0, 1)

	NotificationInfoStyle    = NotificationStyle.BorderForeground(Info)
	NotificationWarningStyle = NotificationStyle.BorderForeground(Warning)
	NotificationErrorStyle   = NotificationStyle.BorderForeground(Error)
)

// NotificationStyleFor picks the border color of a notification kind.
func NotificationStyleFor(kind chat.NotificationKind) lipgloss.Style {
	switch kind {
	case chat.NotifySuccess:
		return NotificationStyle
	case chat.NotifyWarning:
		return NotificationWarningStyle
	case chat.NotifyError:
		return NotificationErrorStyle
	default:
		return NotificationInfoStyle
	}
}

// Badge styles
var (
	AgentBadgeStyle = BaseStyle.
			Foreground(AgentBadge).
			Bold(true).
			Padding(0, 1)

	badgeStyle = BaseStyle.
			Bold(true).
			Padding(0, 1).
			Foreground(Background)

	BadgeInfoStyle    = badgeStyle.Background(Info)
	BadgeSuccessStyle = badgeStyle.Background(Success)
	BadgeErrorStyle   = badgeStyle.Background(Error)
)

// BadgeStyle returns the style of a status badge. Progress indicators are
// drawn by a spinner and fall back to the info style here.
func BadgeStyle(kind task.IndicatorKind) lipgloss.Style {
	switch kind {
	case task.KindSuccess:
		return BadgeSuccessStyle
	case task.KindError:
		return BadgeErrorStyle
	default:
		return BadgeInfoStyle
	}
}

// Spinner Styles
var (
	SpinnerCharStyle          = BaseStyle.Foreground(Accent)
	SpinnerTextBrightestStyle = BaseStyle.Foreground(lipgloss.Color(ColorSpinnerBrightest))
	SpinnerTextBrightStyle    = BaseStyle.Foreground(lipgloss.Color(ColorSpinnerBright))
	SpinnerTextDimStyle       = BaseStyle.Foreground(lipgloss.Color(ColorSpinnerDim))
	SpinnerTextDimmestStyle   = BaseStyle.Foreground(Accent)
)
