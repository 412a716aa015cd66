// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/discpack/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, yaml, csv, markdown)",
		Value:   formatter.FormatText,
	}
}

// metadataFlags are shared by every command that builds a pack.
func metadataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Pack name (defaults to pack.default_name)",
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "Pack description (defaults to pack.default_description)",
		},
		&cli.StringFlag{
			Name:  "version",
			Usage: "Pack version as major.minor.patch; blank parts default to 1.0.0",
		},
		&cli.StringFlag{
			Name:  "icon",
			Usage: "Custom pack icon image",
		},
		&cli.BoolFlag{
			Name:  "no-icon",
			Usage: "Build without a pack icon",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (defaults to <output_dir>/<name>.mcpack)",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the build in the history database",
		},
	}
}

// slotsCommand lists the disc catalog
func slotsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "slots",
		Usage:  "List the music disc records a pack can replace",
		Flags:  []cli.Flag{formatFlag()},
		Action: r.Slots,
	}
}

// previewCommand probes tracks and prints the assignment
func previewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Aliases:   []string{"assign"},
		Usage:     "Show which disc each track would replace",
		ArgsUsage: "<files or directories...>",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:  "save",
				Usage: "Also write the report to this file",
			},
		},
		Action: r.Preview,
	}
}

// buildCommand assembles a pack
func buildCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build a .mcpack from audio tracks",
		ArgsUsage: "<files or directories...>",
		Flags: append(metadataFlags(), &cli.BoolFlag{
			Name:  "json",
			Usage: "Print the build summary as JSON",
		}),
		Action: r.Build,
	}
}

// inspectCommand describes an existing pack
func inspectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the manifest and records of a .mcpack",
		ArgsUsage: "<pack.mcpack>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, json, yaml)",
				Value:   formatter.FormatText,
			},
		},
		Action: r.Inspect,
	}
}

// importCommand rebuilds a pack from an existing one
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Rebuild an existing .mcpack, optionally adding tracks",
		ArgsUsage: "<pack.mcpack> [files or directories...]",
		Flags:     metadataFlags(),
		Action:    r.Import,
	}
}

// historyCommand lists recorded builds
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded builds",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of builds to list",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Only list builds of this pack",
			},
			&cli.IntFlag{
				Name:  "show",
				Usage: "Show the records of the build with this number",
			},
			&cli.StringFlag{
				Name:  "delete",
				Usage: "Remove the build with this id from the history",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead of migrating",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml with the default settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// watchCommand rebuilds a pack whenever a folder changes
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Rebuild the pack whenever tracks in a folder change",
		ArgsUsage: "<directory>",
		Flags: append(metadataFlags(), &cli.DurationFlag{
			Name:  "debounce",
			Usage: "Quiet period before rebuilding",
			Value: 750 * time.Millisecond,
		}),
		Action: r.Watch,
	}
}

// tuiCommand returns the top-level TUI command for an interactive pack session.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch interactive TUI to review, preview and build a pack",
		ArgsUsage: "<files or directories...>",
		Flags:     metadataFlags(),
		Action:    r.TUI,
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the pack builder over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to server.port)",
			},
			&cli.BoolFlag{
				Name:  "history",
				Usage: "Record served builds in the history database",
			},
		},
		Action: r.Serve,
	}
}
