package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  Status
		loading string
		want    Indicator
	}{
		{"submitted_without_message", StatusSubmitted, "", Indicator{Kind: KindProgress, Label: "submitted"}},
		{"working_without_message", StatusWorking, "", Indicator{Kind: KindProgress, Label: "working"}},
		{"working_with_message", StatusWorking, "Working on your request...", Indicator{Kind: KindProgress, Label: "Working on your request..."}},
		{"input_required", StatusInputRequired, "ignored", Indicator{Kind: KindInfo, Label: "Input Required"}},
		{"completed", StatusCompleted, "", Indicator{Kind: KindSuccess, Label: "Completed"}},
		{"canceled", StatusCanceled, "", Indicator{Kind: KindInfo, Label: "Canceled"}},
		{"failed", StatusFailed, "", Indicator{Kind: KindError, Label: "Failed"}},
		{"failed_ignores_loading", StatusFailed, "still loading", Indicator{Kind: KindError, Label: "Failed"}},
		{"unknown", StatusUnknown, "", Indicator{Kind: KindInfo, Label: "Unknown"}},
		{"out_of_range", Status(42), "", Indicator{Kind: KindInfo, Label: "Unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.status, tt.loading)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status.IsActive(), got.InProgress())
		})
	}
}

func TestClassifyRaw_UnrecognizedIsUnknown(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "paused", "rejected", "auth-required", "COMPLETED!", "working-ish"} {
		got := ClassifyRaw(raw, "Working on your request...")
		assert.Equal(t, Indicator{Kind: KindInfo, Label: "Unknown"}, got, raw)
	}
}

func TestClassifyRaw_CaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Indicator{Kind: KindSuccess, Label: "Completed"}, ClassifyRaw("Completed", ""))
	assert.Equal(t, Indicator{Kind: KindInfo, Label: "Canceled"}, ClassifyRaw("cancelled", ""))
	assert.Equal(t, Indicator{Kind: KindInfo, Label: "Input Required"}, ClassifyRaw(" input-required ", ""))
}
