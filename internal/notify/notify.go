// Package notify surfaces terminal batch outcomes to the user.
package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/fleetdeck/fleetdeck/internal/cli"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// CLISink renders notifications as styled terminal lines.
type CLISink struct {
	out io.Writer
}

// NewCLISink creates a sink writing to stdout.
func NewCLISink() *CLISink {
	return &CLISink{out: os.Stdout}
}

// NewCLISinkTo creates a sink writing to the given writer.
func NewCLISinkTo(out io.Writer) *CLISink {
	return &CLISink{out: out}
}

// Notify renders one notification.
func (s *CLISink) Notify(n service.Notification) {
	var line string
	switch n.Severity {
	case service.SeveritySuccess:
		line = cli.FormatSuccess(n.Title)
	case service.SeverityWarning:
		line = cli.FormatWarning(n.Title)
	case service.SeverityError:
		line = cli.FormatError(n.Title)
	default:
		line = cli.FormatInfo(n.Title)
	}

	fmt.Fprintln(s.out, line)
	if n.Description != "" {
		fmt.Fprintln(s.out, cli.SubtleStyle.Render("  "+n.Description))
	}
}

// Ensure CLISink implements the Notifier interface.
var _ service.Notifier = (*CLISink)(nil)
