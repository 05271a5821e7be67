// Package statusbadge draws a classified task status: an animated progress
// row for in-flight tasks, a colored badge otherwise.
package statusbadge

import (
	"github.com/agentmesh/meshchat/pkg/task"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

// View renders ind. sp provides the animation frame of progress rows and is
// relabelled with the indicator text.
func View(ind task.Indicator, sp spinner.Spinner) string {
	if ind.InProgress() {
		return sp.WithMessage(ind.Label).View()
	}
	return styles.BadgeStyle(ind.Kind).Render(ind.Label)
}

// ForStatus classifies status against the loading message and renders it.
func ForStatus(status task.Status, loadingMessage string, sp spinner.Spinner) string {
	return View(task.Classify(status, loadingMessage), sp)
}
