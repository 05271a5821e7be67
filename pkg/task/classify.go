package task

// IndicatorKind selects how a status is drawn.
type IndicatorKind int

const (
	// KindProgress is an animated in-progress indicator, not a badge.
	KindProgress IndicatorKind = iota
	KindInfo
	KindSuccess
	KindError
)

func (k IndicatorKind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindInfo:
		return "info"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "info"
	}
}

// Indicator is the renderable form of a task status.
type Indicator struct {
	Kind  IndicatorKind
	Label string
}

// InProgress reports whether the indicator is the animated progress row.
func (i Indicator) InProgress() bool {
	return i.Kind == KindProgress
}

// Classify maps a status and the text of the current loading message (may be
// empty) to exactly one indicator. It never fails.
func Classify(status Status, loadingMessage string) Indicator {
	switch status {
	case StatusSubmitted, StatusWorking:
		label := loadingMessage
		if label == "" {
			label = status.String()
		}
		return Indicator{Kind: KindProgress, Label: label}
	case StatusInputRequired:
		return Indicator{Kind: KindInfo, Label: "Input Required"}
	case StatusCompleted:
		return Indicator{Kind: KindSuccess, Label: "Completed"}
	case StatusCanceled:
		return Indicator{Kind: KindInfo, Label: "Canceled"}
	case StatusFailed:
		return Indicator{Kind: KindError, Label: "Failed"}
	default:
		return Indicator{Kind: KindInfo, Label: "Unknown"}
	}
}

// ClassifyRaw is Classify for an unparsed wire status.
func ClassifyRaw(raw, loadingMessage string) Indicator {
	return Classify(ParseStatus(raw), loadingMessage)
}
