package tasks

import (
	"cmp"
	"math"
	"slices"

	"github.com/desertthunder/discpack/internal/models"
)

// Assign pairs tracks with disc slots using a greedy two-pass heuristic.
//
// Tracks are visited longest first; ties keep their input order. Each track takes the unused slot that covers it
// most tightly (slot >= track, smallest difference). When no unused slot is long enough it takes the unused slot
// closest in either direction. Ties between slots go to the one first in descending-duration order, which keeps
// catalog order among equal durations. Tracks left over once every slot is used are dropped.
//
// The result is in match order and holds min(len(tracks), len(slots)) assignments. The pairing depends on visit
// order and is not a minimum-cost matching.
func Assign(tracks []models.Track, slots []models.Slot) []models.Assignment {
	ordered := slices.Clone(tracks)
	slices.SortStableFunc(ordered, func(a, b models.Track) int {
		return cmp.Compare(b.Duration, a.Duration)
	})

	available := slices.Clone(slots)
	slices.SortStableFunc(available, func(a, b models.Slot) int {
		return cmp.Compare(b.Duration, a.Duration)
	})

	used := make([]bool, len(available))
	assignments := make([]models.Assignment, 0, min(len(ordered), len(available)))

	for _, track := range ordered {
		best := coverSlot(track.Duration, available, used)
		if best < 0 {
			best = closestSlot(track.Duration, available, used)
		}
		if best < 0 {
			break
		}

		used[best] = true
		assignments = append(assignments, models.NewAssignment(track, available[best]))
	}

	return assignments
}

// coverSlot returns the index of the unused slot at least as long as d with the smallest surplus, or -1.
func coverSlot(d float64, slots []models.Slot, used []bool) int {
	best, bestDiff := -1, math.Inf(1)
	for i, s := range slots {
		if used[i] || float64(s.Duration) < d {
			continue
		}
		if diff := float64(s.Duration) - d; diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

// closestSlot returns the index of the unused slot nearest to d in either direction, or -1 when none remain.
func closestSlot(d float64, slots []models.Slot, used []bool) int {
	best, bestDiff := -1, math.Inf(1)
	for i, s := range slots {
		if used[i] {
			continue
		}
		if diff := math.Abs(float64(s.Duration) - d); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}
