package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/task"
)

func TestPrintAgents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf).PrintAgents(fixtures.Agents(), "AssistantAgent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "● Assistant"))
	assert.Contains(t, lines[2], "DeveloperAgent")
	assert.NotContains(t, buf.String(), "\x1b[", "no color outside a terminal")
}

func TestPrintArtifacts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintArtifacts(fixtures.Artifacts())
	p.PrintArtifacts(nil)

	out := buf.String()
	assert.Contains(t, out, "plan.md")
	assert.Contains(t, out, "2.048kB")
	assert.Contains(t, out, "184.3kB")
	assert.Contains(t, out, "No files available")
}

func TestPrintSessions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf).PrintSessions(fixtures.Sessions(), fixtures.Now)

	assert.Contains(t, buf.String(), "Help with a coding task")
	assert.Contains(t, buf.String(), "About an hour ago")
}

func TestPrintArtifactContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mimeType string
		content  string
		want     string
	}{
		{
			name:     "json keeps key order",
			mimeType: "application/json",
			content:  `{"zeta": "last?", "alpha": 1, "list": [1, 2]}`,
			want:     "zeta: \"last?\"\nalpha: 1\nlist: [\n  1,\n  2\n]\n",
		},
		{
			name:     "empty json object",
			mimeType: "application/json",
			content:  `{}`,
			want:     "{}\n",
		},
		{
			name:     "invalid json is text",
			mimeType: "application/json",
			content:  `[1, 2]`,
			want:     "[1, 2]\n",
		},
		{
			name:     "text",
			mimeType: "text/plain",
			content:  "# Plan\n",
			want:     "# Plan\n",
		},
		{
			name:     "binary",
			mimeType: "image/png",
			content:  "\x89PNG\x00\x00",
			want:     "<image/png, 6B of binary content>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewPrinter(&buf).PrintArtifactContent(tt.mimeType, []byte(tt.content))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status task.Status
		want   string
	}{
		{status: task.StatusWorking, want: "… working"},
		{status: task.StatusCompleted, want: "✓ Completed"},
		{status: task.StatusFailed, want: "✕ Failed"},
		{status: task.StatusCanceled, want: "• Canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewPrinter(&buf).PrintTask(fixtures.Task(tt.status), "", true)

			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "    • Reviewing repository layout · DeveloperAgent")
		})
	}
}

func TestPrintNotification(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf).PrintNotification(chat.Notification{Text: "Request canceled", Kind: chat.NotifyInfo})
	assert.Equal(t, "Request canceled\n", buf.String())
}
