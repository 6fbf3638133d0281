package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorHeading = color.New(color.Bold).SprintFunc()
)

// formatStatusWithColor colours section and job states.
func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success":
		return colorSuccess(status)
	case "pending", "running":
		return colorWarn(status)
	case "error", "failed":
		return colorError(status)
	default:
		return status
	}
}
