package widgets

import (
	"strings"
	"testing"
)

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value float64
		full  int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{3, 10},
		{-1, 0},
	}
	for _, tt := range tests {
		got := RenderBar(tt.value, 10, '#', '.', [3]uint8{255, 0, 0})
		if n := strings.Count(got, "#"); n != tt.full {
			t.Errorf("RenderBar(%v) has %d full cells, want %d", tt.value, n, tt.full)
		}
		if n := strings.Count(got, "."); n != 10-tt.full {
			t.Errorf("RenderBar(%v) has %d empty cells", tt.value, n)
		}
	}
}

func TestRenderKeyHelp(t *testing.T) {
	got := RenderKeyHelp([]KeySection{{Title: "Playback", Keys: []KeyBinding{{"p", "pause"}, {"q", "quit"}}}})
	if !strings.Contains(got, "Playback") || !strings.Contains(got, "p            pause") {
		t.Fatalf("help = %q", got)
	}
}

func TestRenderPadRow(t *testing.T) {
	got := RenderPadRow([][3]uint8{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, 'o')
	if strings.Count(got, "o") != 3 {
		t.Fatalf("row = %q", got)
	}
}
