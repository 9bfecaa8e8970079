// Package planner cuts a source duration into analysis segments.
package planner

import (
	"time"

	"shortsmith/config"
)

// Segment is a (start, length) window of the source.
type Segment struct {
	Start  time.Duration
	Length time.Duration
}

// End is the exclusive end of the segment.
func (s Segment) End() time.Duration { return s.Start + s.Length }

// Plan slices total into config.ChunkSlice pieces. A remainder at or below
// config.ChunkMergeThreshold becomes one final segment instead of a short tail.
func Plan(total time.Duration) []Segment {
	return PlanWith(total, config.ChunkSlice, config.ChunkMergeThreshold)
}

// PlanWith is Plan with explicit slice and merge sizes.
func PlanWith(total, slice, merge time.Duration) []Segment {
	if total <= 0 || slice <= 0 {
		return nil
	}

	var segments []Segment
	var start time.Duration
	for start < total {
		remaining := total - start
		if remaining <= merge {
			segments = append(segments, Segment{Start: start, Length: remaining})
			break
		}
		segments = append(segments, Segment{Start: start, Length: slice})
		start += slice
	}
	return segments
}

// PlanSeconds is Plan over whole seconds.
func PlanSeconds(total uint64) [][2]uint64 {
	segments := Plan(time.Duration(total) * time.Second)
	out := make([][2]uint64, len(segments))
	for i, s := range segments {
		out[i] = [2]uint64{uint64(s.Start / time.Second), uint64(s.Length / time.Second)}
	}
	return out
}
