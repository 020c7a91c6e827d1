package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdeck/fleetdeck/internal/service"
)

func TestNotifyRendersSeverities(t *testing.T) {
	tests := []struct {
		name     string
		severity service.Severity
	}{
		{"success", service.SeveritySuccess},
		{"warning", service.SeverityWarning},
		{"error", service.SeverityError},
		{"info", service.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewCLISinkTo(&buf).Notify(service.Notification{
				Title:    "Claiming applications complete",
				Severity: tt.severity,
			})
			assert.Contains(t, buf.String(), "Claiming applications complete")
		})
	}
}

func TestNotifyIncludesDescription(t *testing.T) {
	var buf bytes.Buffer
	NewCLISinkTo(&buf).Notify(service.Notification{
		Title:       "Claiming applications finished with failures",
		Description: "failed items can be retried",
		Severity:    service.SeverityWarning,
	})
	assert.Contains(t, buf.String(), "failed items can be retried")
}
