package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes full word", "yes\n", true},
		{"yes uppercase", "Y\n", true},
		{"no", "n\n", false},
		{"empty defaults to no", "\n", false},
		{"garbage defaults to no", "sure why not\n", false},
		{"surrounding whitespace", "  y  \n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(context.Background(), strings.NewReader(tt.input), &out, "Process 3 items")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestConfirmEOFIsNo(t *testing.T) {
	var out bytes.Buffer
	got, err := Confirm(context.Background(), strings.NewReader(""), &out, "Proceed")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestConfirmContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A blocked reader never delivers a line; only the context can end the wait.
	blocked, _ := io.Pipe()
	var out bytes.Buffer
	_, err := Confirm(ctx, blocked, &out, "Proceed")
	assert.ErrorIs(t, err, ErrInputCancelled)
}
