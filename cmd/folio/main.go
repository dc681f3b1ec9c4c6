package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"folio/common"
	"folio/config"
	"folio/convert"
	"folio/misc"
	"folio/project"
	"folio/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if store := cmd.String("store"); store != "" {
		env.Cfg.Store.Path = store
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// we do not want any of your secrets!
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if er := env.CloseStore(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close store: %w", er))
	}

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - for me cli.Exit() looks
// non-transparent and unnesessary. I will return regular errors from
// subcommands.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func exportFormats() []string {
	var names []string
	for _, f := range common.FormatValues() {
		if f.CanExport() {
			names = append(names, f.String())
		}
	}
	return names
}

func main() {

	// allow graceful shutdown on interrupt, long imports check context
	// between documents
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "document interchange engine for fiction manuscripts",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "use database `FILE` instead of configured one"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "init",
				Usage:        "Creates new project and prints its id",
				OnUsageError: usageErrorHandler,
				Action:       convert.Init,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "project `TITLE`, could also be given as arguments"},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "project `AUTHOR`"},
					&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Value: "en", Usage: "content `LANGUAGE` (BCP 47 tag)"},
					&cli.StringFlag{Name: "synopsis", Usage: "short project `SYNOPSIS`"},
				},
				ArgsUsage: "[TITLE]",
			},
			{
				Name:         "list",
				Usage:        "Lists projects or documents of a project",
				OnUsageError: usageErrorHandler,
				Action:       convert.List,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "project `ID` to show document tree of"},
					&cli.BoolFlag{Name: "entities", Aliases: []string{"e"}, Usage: "also list world entities"},
				},
			},
			{
				Name:         "import",
				Usage:        "Imports document(s) into project splitting them into chapters and scenes",
				OnUsageError: usageErrorHandler,
				Action:       convert.Import,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "target project `ID`"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"},
						Usage: "source `FORMAT` (auto, " + strings.Join(common.FormatNames(), ", ") + ")"},
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"},
						Usage: "import `MODE` (" + strings.Join(common.ImportModeNames(), ", ") + ")"},
					&cli.BoolFlag{Name: "detect-entities", Aliases: []string{"de"}, Usage: "detect characters, locations and other entities in imported text"},
					&cli.StringSliceFlag{Name: "entity-types", Usage: "entity `TYPES` to detect (" + strings.Join(project.DefaultEntityTypes, ", ") + ")"},
				},
				ArgsUsage: "SOURCE [SOURCE...]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to document(s) to import, following forms are supported:
        path to a file: "[path_to_file]file.md"
        path to a directory: "[path_to_directory]directory" - recursively import all supported files under directory
        path to zip archive: "[path_to_archive]archive.zip" - import all supported files from archive

	Files from directories and archives are imported in natural name order,
	so "chapter2.md" comes before "chapter10.md". In replace mode only the
	first file replaces project content, the rest are appended after it.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "export",
				Usage:        "Exports project to specified format",
				OnUsageError: usageErrorHandler,
				Action:       convert.Export,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "project `ID` to export"},
					&cli.StringFlag{Name: "to",
						Usage: "output `TYPE` (supported types: " + strings.Join(exportFormats(), ", ") + ")"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "output file `NAME` without extension, overrides configured template"},
					&cli.BoolFlag{Name: "glossary", Aliases: []string{"g"}, Usage: "append glossary of world entities"},
					&cli.BoolFlag{Name: "marks", Usage: "preserve entity references in output"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "overwrite existing output file"},
				},
				ArgsUsage: "[DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    always a directory, output file name and extension will be derived from
    project and configuration, if absent - current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

// outputConfiguration writes configuration to a file or stdout. Secrets are
// always masked, so the result is safe to attach to bug reports.
func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	args := cmd.Args().Slice()
	if len(args) > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", args[1:]))
	}

	which, prepare := "actual", func() ([]byte, error) { return config.Dump(env.Cfg) }
	if cmd.Bool("default") {
		which, prepare = "default", config.Prepare
	}
	// build data before touching destination so failure leaves no empty file behind
	data, err := prepare()
	if err != nil {
		return fmt.Errorf("unable to get %s configuration: %w", which, err)
	}

	if len(args) == 0 {
		env.Log.Info("Writing configuration", zap.String("state", which), zap.String("to", "STDOUT"))
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("unable to write configuration: %w", err)
		}
		return nil
	}

	env.Log.Info("Writing configuration", zap.String("state", which), zap.String("to", args[0]))
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return fmt.Errorf("unable to write configuration to '%s': %w", args[0], err)
	}
	return nil
}
