package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Build pipeline errors
	ErrProbeFailed      = fmt.Errorf("duration probe failed")
	ErrCapacityExceeded = fmt.Errorf("more tracks than disc slots")
	ErrIconUnavailable  = fmt.Errorf("pack icon unavailable")
	ErrAssemblyFailed   = fmt.Errorf("pack assembly failed")
	ErrBuildInProgress  = fmt.Errorf("a build is already running")
	ErrNoTracks         = fmt.Errorf("no tracks selected")

	// Session errors
	ErrReleased      = fmt.Errorf("handle already released")
	ErrTrackNotFound = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
