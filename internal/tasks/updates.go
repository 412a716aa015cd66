package tasks

import (
	"fmt"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ProbeTracks Phase = iota
	AssignSlots
	ResolveIcon
	AssemblePack
	WritePack
	Done
)

func (p Phase) String() string {
	switch p {
	case ProbeTracks:
		return "probe_tracks"
	case AssignSlots:
		return "assign_slots"
	case ResolveIcon:
		return "resolve_icon"
	case AssemblePack:
		return "assemble_pack"
	case WritePack:
		return "write_pack"
	case Done:
		return "done"
	default:
		return ""
	}
}

func probedUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%s)", step, total, tr.DisplayName(), shared.FormatDuration(tr.Duration)),
		Data:    tr,
	}
}

func assignUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AssignSlots,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Assigning %d tracks to disc slots...", total),
	}
}

func iconUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveIcon,
		Step:    1,
		Total:   1,
		Message: "Preparing pack icon...",
	}
}

func assembleUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AssemblePack,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Packing %d records...", total),
	}
}

func writeUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WritePack,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %s...", path),
	}
}

func doneUpdate(res *BuildResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s (%d tracks)", res.Metadata.FileName(), len(res.Assignments)),
		Data:    res,
	}
}
