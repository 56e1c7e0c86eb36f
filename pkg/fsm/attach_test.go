package fsm

import "testing"

// TestResponseAccumulation checks AttachResponse fields survive across
// transitions the way the handlers pass them along.
func TestResponseAccumulation(t *testing.T) {
	resp := &AttachResponse{
		StagedSources: []string{"/tmp/loopbackx/staged/chain0/0-a.img", "/data/b.img"},
		StagedBytes:   4096,
	}

	// Simulate the attach transition filling in identity and geometry.
	resp.DeviceID = 7
	resp.TotalSectors = 8
	resp.SizeKnown = true
	resp.Status = StatusAttached

	if len(resp.StagedSources) != 2 {
		t.Error("staged sources should be preserved from the stage state")
	}
	if resp.DeviceID != 7 {
		t.Error("device id should be set after attach")
	}
	if resp.Status != StatusAttached {
		t.Errorf("status: got %s, want %s", resp.Status, StatusAttached)
	}
}

// TestStagePassthroughLogic checks local sources bypass staging while
// remote ones get a work-dir path.
func TestStagePassthroughLogic(t *testing.T) {
	tests := []struct {
		source string
		staged bool
	}{
		{"/data/a.img", false},
		{"relative.img", false},
		{"s3://images/base.img", true},
	}

	for _, tt := range tests {
		// Mirrors the dispatch in handleStage.
		isStaged := len(tt.source) > 5 && tt.source[:5] == "s3://"
		if isStaged != tt.staged {
			t.Errorf("source %q: staged=%v, want %v", tt.source, isStaged, tt.staged)
		}
	}
}
