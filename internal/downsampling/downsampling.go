// Package downsampling thins long enrollment series for charting.
package downsampling

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Mode represents the downsampling mode
type Mode string

const (
	// ModeNone returns the series unchanged
	ModeNone Mode = "none"
	// ModeAuto picks an algorithm from the shape of the series
	ModeAuto Mode = "auto"
	// ModeLTTB uses Largest-Triangle-Three-Buckets
	ModeLTTB Mode = "lttb"
	// ModeMinMax keeps the min and max of each bucket (preserves spikes)
	ModeMinMax Mode = "minmax"
	// ModeAverage replaces each bucket by its mean
	ModeAverage Mode = "avg"
	// ModeM4 keeps first, min, max and last of each bucket
	ModeM4 Mode = "m4"
)

// DefaultAutoThreshold is the point budget when none is given
const DefaultAutoThreshold = 500

// MinThreshold is the smallest point budget accepted
const MinThreshold = 2

// ValidModes returns all valid downsampling modes
func ValidModes() []Mode {
	return []Mode{ModeNone, ModeAuto, ModeLTTB, ModeMinMax, ModeAverage, ModeM4}
}

// ParseMode parses a mode name; an empty string is ModeNone
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeNone, nil
	}
	for _, m := range ValidModes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown downsampling mode %q (want one of none, auto, lttb, minmax, avg, m4)", s)
}

// Point is one labelled value in period order
type Point struct {
	Label string
	Value float64
}

// Apply reduces points to roughly threshold entries.
// Series at or under the threshold are returned as is.
func Apply(points []Point, mode Mode, threshold int) ([]Point, error) {
	if mode == ModeNone || len(points) == 0 {
		return points, nil
	}
	if threshold <= 0 {
		threshold = DefaultAutoThreshold
	}
	threshold = max(threshold, MinThreshold)
	if len(points) <= threshold {
		return points, nil
	}

	if mode == ModeAuto {
		mode = detectBestAlgorithm(points)
	}

	var idx []int
	switch mode {
	case ModeLTTB:
		idx = lttb(points, threshold)
	case ModeMinMax:
		idx = minmax(points, threshold)
	case ModeM4:
		idx = m4(points, threshold)
	case ModeAverage:
		return average(points, threshold), nil
	default:
		return nil, fmt.Errorf("unknown downsampling mode: %s", mode)
	}

	out := make([]Point, len(idx))
	for i, j := range idx {
		out[i] = points[j]
	}
	return out, nil
}

// detectBestAlgorithm favours MinMax for spiky series, M4 for moderately
// spiky ones and LTTB otherwise.
func detectBestAlgorithm(points []Point) Mode {
	switch s := spikiness(points); {
	case s > 0.2:
		return ModeMinMax
	case s > 0.1:
		return ModeM4
	default:
		return ModeLTTB
	}
}

// spikiness is in [0, 1]: the weighted share of points beyond 2 sigma and of
// steps larger than 1 sigma.
func spikiness(points []Point) float64 {
	if len(points) < 10 {
		return 0
	}

	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	mean, std := stat.PopMeanStdDev(vals, nil)
	if std == 0 {
		return 0
	}

	var outliers, jumps int
	for i, v := range vals {
		if math.Abs(v-mean) > 2*std {
			outliers++
		}
		if i > 0 && math.Abs(v-vals[i-1]) > std {
			jumps++
		}
	}

	abs := float64(outliers) / float64(len(vals))
	deriv := float64(jumps) / float64(len(vals)-1)
	return math.Min((abs+1.5*deriv)/2.5, 1)
}

// lttb returns the indices kept by Largest-Triangle-Three-Buckets
func lttb(data []Point, threshold int) []int {
	n := len(data)
	if threshold <= 2 {
		return []int{0, n - 1}
	}

	sampled := make([]int, 0, threshold)
	sampled = append(sampled, 0)

	bucket := float64(n-2) / float64(threshold-2)
	a := 0

	for i := 0; i < threshold-2; i++ {
		// Mean of the next bucket
		nextStart := int(math.Floor(float64(i+1)*bucket)) + 1
		nextEnd := min(int(math.Floor(float64(i+2)*bucket))+1, n)
		var avgX, avgY float64
		for j := nextStart; j < nextEnd; j++ {
			avgX += float64(j)
			avgY += data[j].Value
		}
		if span := float64(nextEnd - nextStart); span > 0 {
			avgX /= span
			avgY /= span
		}

		from := int(math.Floor(float64(i)*bucket)) + 1
		to := int(math.Floor(float64(i+1)*bucket)) + 1
		ax, ay := float64(a), data[a].Value

		best, bestArea := from, -1.0
		for j := from; j < to; j++ {
			area := math.Abs((ax-avgX)*(data[j].Value-ay)-(ax-float64(j))*(avgY-ay)) * 0.5
			if area > bestArea {
				best, bestArea = j, area
			}
		}

		sampled = append(sampled, best)
		a = best
	}

	return append(sampled, n-1)
}

// buckets splits [0, n) into k contiguous ranges
func buckets(n, k int) [][2]int {
	k = max(k, 1)
	size := float64(n) / float64(k)
	out := make([][2]int, 0, k)
	for i := 0; i < k; i++ {
		start := int(float64(i) * size)
		end := min(int(float64(i+1)*size), n)
		if start < end {
			out = append(out, [2]int{start, end})
		}
	}
	return out
}

// extremes returns the indices of the min and max value in data[start:end]
func extremes(data []Point, start, end int) (lo, hi int) {
	lo, hi = start, start
	for j := start + 1; j < end; j++ {
		if data[j].Value < data[lo].Value {
			lo = j
		}
		if data[j].Value > data[hi].Value {
			hi = j
		}
	}
	return lo, hi
}

// minmax keeps the min and max of threshold/2 buckets, in period order
func minmax(data []Point, threshold int) []int {
	sampled := make([]int, 0, threshold)
	for _, b := range buckets(len(data), threshold/2) {
		lo, hi := extremes(data, b[0], b[1])
		first, second := min(lo, hi), max(lo, hi)
		sampled = append(sampled, first)
		if second != first {
			sampled = append(sampled, second)
		}
	}
	return sampled
}

// m4 keeps first, min, max and last of threshold/4 buckets, in period order
func m4(data []Point, threshold int) []int {
	sampled := make([]int, 0, threshold)
	for _, b := range buckets(len(data), threshold/4) {
		first, last := b[0], b[1]-1
		lo, hi := extremes(data, b[0], b[1])

		sampled = append(sampled, first)
		mid := []int{min(lo, hi), max(lo, hi)}
		prev := first
		for _, j := range mid {
			if j != prev && j != last {
				sampled = append(sampled, j)
				prev = j
			}
		}
		if last != first {
			sampled = append(sampled, last)
		}
	}
	return sampled
}

// average replaces each of threshold buckets by its mean, labelled with the
// bucket's middle period.
func average(data []Point, threshold int) []Point {
	out := make([]Point, 0, threshold)
	for _, b := range buckets(len(data), threshold) {
		var sum float64
		for j := b[0]; j < b[1]; j++ {
			sum += data[j].Value
		}
		count := b[1] - b[0]
		out = append(out, Point{
			Label: data[b[0]+count/2].Label,
			Value: sum / float64(count),
		})
	}
	return out
}
