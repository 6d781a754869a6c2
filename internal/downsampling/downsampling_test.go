package downsampling

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func series(n int, f func(i int) float64) []Point {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Point, n)
	for i := range out {
		out[i] = Point{Label: start.AddDate(0, 0, i).Format("2006-01-02"), Value: f(i)}
	}
	return out
}

func assertOrdered(t *testing.T, got []Point) {
	t.Helper()
	for i := 1; i < len(got); i++ {
		if got[i].Label <= got[i-1].Label {
			t.Fatalf("points out of order at %d: %s after %s", i, got[i].Label, got[i-1].Label)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeNone, false},
		{"none", ModeNone, false},
		{"AUTO", ModeAuto, false},
		{" lttb ", ModeLTTB, false},
		{"minmax", ModeMinMax, false},
		{"avg", ModeAverage, false},
		{"m4", ModeM4, false},
		{"median", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApply_Passthrough(t *testing.T) {
	pts := series(50, func(i int) float64 { return float64(i) })

	for _, mode := range ValidModes() {
		got, err := Apply(pts, mode, 100)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", mode, err)
		}
		if len(got) != len(pts) {
			t.Errorf("%s: expected %d points below threshold, got %d", mode, len(pts), len(got))
		}
	}

	got, err := Apply(pts, ModeNone, 5)
	if err != nil || len(got) != len(pts) {
		t.Errorf("ModeNone should never downsample, got %d points, err %v", len(got), err)
	}

	got, err = Apply(nil, ModeLTTB, 5)
	if err != nil || len(got) != 0 {
		t.Errorf("empty input should pass through, got %v, err %v", got, err)
	}
}

func TestApply_LTTB(t *testing.T) {
	pts := series(1000, func(i int) float64 { return math.Sin(float64(i) / 50) })

	got, err := Apply(pts, ModeLTTB, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 points, got %d", len(got))
	}
	if got[0] != pts[0] || got[len(got)-1] != pts[len(pts)-1] {
		t.Error("LTTB must keep the first and last points")
	}
	assertOrdered(t, got)
}

func TestApply_MinMaxKeepsSpike(t *testing.T) {
	pts := series(1000, func(i int) float64 {
		if i == 637 {
			return 50000
		}
		return 100
	})

	got, err := Apply(pts, ModeMinMax, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 20 {
		t.Errorf("expected at most 20 points, got %d", len(got))
	}

	found := false
	for _, p := range got {
		if p.Value == 50000 {
			found = true
		}
	}
	if !found {
		t.Error("MinMax dropped the spike")
	}
	assertOrdered(t, got)
}

func TestApply_M4(t *testing.T) {
	pts := series(400, func(i int) float64 { return float64(i % 17) })

	got, err := Apply(pts, ModeM4, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 40 {
		t.Errorf("expected at most 40 points, got %d", len(got))
	}
	if got[0] != pts[0] || got[len(got)-1] != pts[len(pts)-1] {
		t.Error("M4 must keep the first and last points")
	}
	assertOrdered(t, got)
}

func TestApply_Average(t *testing.T) {
	pts := series(100, func(i int) float64 { return float64(i) })

	got, err := Apply(pts, ModeAverage, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(got))
	}
	// First bucket holds 0..9
	if got[0].Value != 4.5 {
		t.Errorf("expected first bucket mean 4.5, got %v", got[0].Value)
	}
	if got[0].Label != pts[5].Label {
		t.Errorf("expected first bucket labelled %s, got %s", pts[5].Label, got[0].Label)
	}
	assertOrdered(t, got)
}

func TestApply_Auto(t *testing.T) {
	smooth := series(2000, func(i int) float64 { return float64(i) })
	got, err := Apply(smooth, ModeAuto, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != DefaultAutoThreshold {
		t.Errorf("smooth series should use LTTB with %d points, got %d", DefaultAutoThreshold, len(got))
	}

	if mode := detectBestAlgorithm(smooth); mode != ModeLTTB {
		t.Errorf("expected lttb for a linear series, got %s", mode)
	}

	spiky := series(200, func(i int) float64 { return float64((i % 2) * 1000) })
	if mode := detectBestAlgorithm(spiky); mode != ModeMinMax {
		t.Errorf("expected minmax for an alternating series, got %s", mode)
	}
}

func TestApply_UnknownMode(t *testing.T) {
	pts := series(10, func(i int) float64 { return float64(i) })
	if _, err := Apply(pts, Mode("bogus"), 3); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSpikiness(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		{"too short", series(5, func(i int) float64 { return float64(i * 100) }), 0},
		{"constant", series(50, func(int) float64 { return 7 }), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spikiness(tt.pts); got != tt.want {
				t.Errorf("spikiness() = %v, want %v", got, tt.want)
			}
		})
	}

	for _, n := range []int{10, 100, 1000} {
		t.Run(fmt.Sprintf("bounded_%d", n), func(t *testing.T) {
			s := spikiness(series(n, func(i int) float64 { return float64((i * 7919) % 101) }))
			if s < 0 || s > 1 {
				t.Errorf("spikiness out of [0, 1]: %v", s)
			}
		})
	}
}
