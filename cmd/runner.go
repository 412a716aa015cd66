package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/imaging"
	"github.com/desertthunder/discpack/internal/pack"
	"github.com/desertthunder/discpack/internal/repositories"
	"github.com/desertthunder/discpack/internal/services"
	"github.com/desertthunder/discpack/internal/shared"
	"github.com/desertthunder/discpack/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	prober     services.Prober
	fetcher    imaging.Fetcher
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.PackEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Prober     services.Prober // Defaults to the native probers with ffprobe as fallback
	Fetcher    imaging.Fetcher // Defaults to [services.AssetClient]
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Prober == nil {
		ffprobe := services.NewFFProbe(opts.Config.Probe.FFProbePath)
		opts.Prober = services.NewChainProber(ffprobe, opts.Logger)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		prober:     opts.Prober,
		fetcher:    opts.Fetcher,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.engine = r.newEngine()
	return r
}

func (r *Runner) newEngine() *tasks.PackEngine {
	icons := imaging.NewIconSource(r.config.Icon, r.fetcher, r.logger)
	return tasks.NewPackEngine(r.prober, icons, pack.NewAssembler(nil), tasks.EngineOpts{
		Workers:            r.config.Probe.Workers,
		DefaultName:        r.config.Pack.DefaultName,
		DefaultDescription: r.config.Pack.DefaultDescription,
		Logger:             r.logger,
	})
}

// SetLogger replaces the logger used by the runner and everything it builds.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.engine = r.newEngine()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		slotsCommand, previewCommand, buildCommand, inspectCommand, importCommand,
		historyCommand, setupCommand, watchCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openHistory opens the build history database, applying pending migrations.
func (r *Runner) openHistory() (*repositories.BuildRepository, *sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open build history: %w", err)
	}
	return repositories.NewBuildRepository(db), db, nil
}

// enableHistory attaches the history database to the engine. Failures only disable history.
func (r *Runner) enableHistory() func() {
	repo, db, err := r.openHistory()
	if err != nil {
		r.logger.Warn("build history disabled", "err", err)
		return func() {}
	}
	r.engine.SetRecorder(repo)
	return func() {
		r.engine.SetRecorder(nil)
		db.Close()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
