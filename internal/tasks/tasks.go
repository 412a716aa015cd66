package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/services"
	"github.com/desertthunder/discpack/internal/shared"
)

// DefaultWorkers bounds concurrent probes when no worker count is configured.
const DefaultWorkers = 4

// IconResolver produces the normalized pack icon. A nil result means the pack ships without one.
type IconResolver interface {
	Resolve(ctx context.Context, custom []byte, tracks []models.Track) []byte
}

// Assembler writes the pack archive.
type Assembler interface {
	Assemble(assignments []models.Assignment, meta models.Metadata, icon []byte) ([]byte, *models.Manifest, error)
}

// BuildRecorder persists finished builds. repositories.BuildRepository implements it.
type BuildRecorder interface {
	Create(build *models.PersistedBuild) error
}

// BuildRequest describes one pack build.
type BuildRequest struct {
	Tracks   []models.Track       // Selected tracks, durations resolved by the engine
	Metadata models.MetadataInput // Raw metadata; blanks take the configured defaults
	Icon     []byte               // Custom icon bytes, nil for the default icon
	NoIcon   bool                 // Skip the icon entirely
	// OutputPath is the archive destination. When empty and OutputDir is set, the file is written to
	// OutputDir/<name>.mcpack. When both are empty nothing is written.
	OutputPath string
	OutputDir  string
}

// BuildResult is a finished build.
type BuildResult struct {
	Metadata    models.Metadata
	Manifest    *models.Manifest
	Assignments []models.Assignment
	Dropped     []models.Track // Tracks that found no slot
	Archive     []byte
	HasIcon     bool
	OutputPath  string // Empty when the archive was not written to disk
	BuildID     string // Empty when history is disabled
}

// EngineOpts configures a [PackEngine].
type EngineOpts struct {
	Workers            int
	DefaultName        string
	DefaultDescription string
	Logger             *log.Logger
}

// PackEngine resolves durations, assigns slots and assembles packs.
type PackEngine struct {
	prober    services.Prober
	icons     IconResolver
	assembler Assembler
	recorder  BuildRecorder
	slots     []models.Slot
	assign    func([]models.Track, []models.Slot) []models.Assignment
	opts      EngineOpts
	logger    *log.Logger

	building sync.Mutex
}

// NewPackEngine creates a [PackEngine]. A nil icons resolver disables icons.
func NewPackEngine(prober services.Prober, icons IconResolver, assembler Assembler, opts EngineOpts) *PackEngine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &PackEngine{
		prober:    prober,
		icons:     icons,
		assembler: assembler,
		slots:     models.Slots(),
		assign:    Assign,
		opts:      opts,
		logger:    opts.Logger,
	}
}

// SetRecorder enables build history.
func (e *PackEngine) SetRecorder(r BuildRecorder) {
	e.recorder = r
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PackEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

type probeJob struct {
	index int
	track models.Track
}

type probeResult struct {
	index    int
	duration float64
	err      error
}

// Resolve probes every track concurrently and returns copies with Duration set, in input order.
//
// The first failure cancels the outstanding probes and is returned alone; durations that did resolve are
// discarded.
func (e *PackEngine) Resolve(ctx context.Context, progress chan<- ProgressUpdate, tracks []models.Track) ([]models.Track, error) {
	if len(tracks) == 0 {
		return nil, shared.ErrNoTracks
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := min(e.opts.Workers, len(tracks))
	jobs := make(chan probeJob, len(tracks))
	results := make(chan probeResult, len(tracks))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go e.probeWorker(ctx, &wg, jobs, results)
	}

	for i, tr := range tracks {
		jobs <- probeJob{index: i, track: tr}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	resolved := make([]models.Track, len(tracks))
	copy(resolved, tracks)

	var firstErr error
	completed := 0
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		if firstErr != nil {
			continue
		}
		completed++
		resolved[res.index].Duration = res.duration
		e.sendProgress(progress, probedUpdate(completed, len(tracks), resolved[res.index]))
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (e *PackEngine) probeWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan probeJob, results chan<- probeResult) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- probeResult{index: job.index, err: ctx.Err()}
			continue
		default:
		}

		d, err := e.prober.Probe(ctx, job.track)
		results <- probeResult{index: job.index, duration: d, err: err}
	}
}

// Preview resolves durations and returns the assignment without building anything.
func (e *PackEngine) Preview(ctx context.Context, progress chan<- ProgressUpdate, tracks []models.Track) ([]models.Assignment, []models.Track, error) {
	resolved, err := e.Resolve(ctx, progress, tracks)
	if err != nil {
		return nil, nil, err
	}

	e.sendProgress(progress, assignUpdate(len(resolved)))
	assignments := e.assign(resolved, e.slots)
	return assignments, dropped(resolved, assignments), nil
}

// Build runs the whole pipeline: probe, assign, icon, assemble, write and record.
//
// Only one build runs at a time per engine; an overlapping call fails with [shared.ErrBuildInProgress].
func (e *PackEngine) Build(ctx context.Context, progress chan<- ProgressUpdate, req BuildRequest) (*BuildResult, error) {
	if !e.building.TryLock() {
		return nil, shared.ErrBuildInProgress
	}
	defer e.building.Unlock()

	meta := models.NormalizeMetadata(req.Metadata, e.opts.DefaultName, e.opts.DefaultDescription)
	logger := shared.WithLogger(e.logger, "pack", meta.Name)

	assignments, left, err := e.Preview(ctx, progress, req.Tracks)
	if err != nil {
		return nil, err
	}
	for _, tr := range left {
		logger.Warn("no slot left for track", "track", tr.Name)
	}

	var icon []byte
	if !req.NoIcon && e.icons != nil {
		e.sendProgress(progress, iconUpdate())
		icon = e.icons.Resolve(ctx, req.Icon, req.Tracks)
	}

	e.sendProgress(progress, assembleUpdate(len(assignments)))
	archive, manifest, err := e.assembler.Assemble(assignments, meta, icon)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{
		Metadata:    meta,
		Manifest:    manifest,
		Assignments: assignments,
		Dropped:     left,
		Archive:     archive,
		HasIcon:     icon != nil,
	}

	if out := outputPath(req, meta); out != "" {
		e.sendProgress(progress, writeUpdate(out))
		if err := writeArchive(out, archive); err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrAssemblyFailed, err)
		}
		result.OutputPath = out
	}

	if e.recorder != nil {
		build := models.NewPersistedBuild(manifest, assignments, result.HasIcon, result.OutputPath, int64(len(archive)))
		if err := e.recorder.Create(build); err != nil {
			logger.Warn("failed to record build", "err", err)
		} else {
			result.BuildID = build.ID()
		}
	}

	e.sendProgress(progress, doneUpdate(result))
	logger.Info("pack built", "tracks", len(assignments), "bytes", len(archive), "icon", result.HasIcon)
	return result, nil
}

func outputPath(req BuildRequest, meta models.Metadata) string {
	if req.OutputPath != "" {
		return req.OutputPath
	}
	if req.OutputDir != "" {
		return filepath.Join(req.OutputDir, meta.FileName())
	}
	return ""
}

// writeArchive writes data beside path and renames it into place so readers never see a partial pack.
func writeArchive(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".discpack-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// dropped returns the tracks that received no slot, in input order.
func dropped(tracks []models.Track, assignments []models.Assignment) []models.Track {
	if len(assignments) == len(tracks) {
		return nil
	}

	used := make(map[string]int, len(assignments))
	for _, a := range assignments {
		used[a.Track.Name]++
	}

	var out []models.Track
	for _, tr := range tracks {
		if used[tr.Name] > 0 {
			used[tr.Name]--
			continue
		}
		out = append(out, tr)
	}
	return out
}

// IsSoft reports whether err only degrades a build instead of failing it.
func IsSoft(err error) bool {
	return errors.Is(err, shared.ErrCapacityExceeded) || errors.Is(err, shared.ErrIconUnavailable)
}
