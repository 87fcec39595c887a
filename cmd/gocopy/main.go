// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/navwar/gocopy/pkg/job"
	"github.com/navwar/gocopy/pkg/lfs"
	"github.com/navwar/gocopy/pkg/log"
	"github.com/navwar/gocopy/pkg/mainloop"
	"github.com/navwar/gocopy/pkg/ts"
)

const (
	GoCopyVersion = "0.0.1"
)

// Debug Flag
const (
	flagDebug = "debug"
)

// Config Flag
const (
	flagConfig = "config"
)

// Copy Flags
const (
	flagCloseTimeout = "close-timeout"
	flagProgress     = "progress"
	flagReport       = "report"
	flagTimeLayout   = "time-layout"
	flagTimeZone     = "time-zone"
)

// Copy Defaults
const (
	DefaultCloseTimeout = 5 * time.Second
	DefaultProgress     = progressAuto
)

// Progress Modes
const (
	progressAuto  = "auto"
	progressBar   = "bar"
	progressLines = "lines"
	progressNone  = "none"
)

// Log Flags
const (
	flagLogPath   = "log-path"
	flagLogFormat = "log-format"
	flagLogPerm   = "log-perm"
)

// Log Defaults
const (
	DefaultLogFormat = log.FormatText
)

func initDebugFlags(flag *pflag.FlagSet) {
	flag.BoolP(flagDebug, "d", false, "print debug messages")
}

func initConfigFlags(flag *pflag.FlagSet) {
	flag.StringP(flagConfig, "c", "", "path to a YAML config file.  Flags and environment variables take precedence.")
}

func initCopyFlags(flag *pflag.FlagSet) {
	flag.Duration(flagCloseTimeout, DefaultCloseTimeout, "how long to wait for the current source to finish after the copy is interrupted")
	flag.String(flagProgress, DefaultProgress, "progress output.  Either auto, bar, lines, or none.  auto uses a progress bar on a terminal.")
	flag.StringP(flagReport, "r", "", "path to write a YAML report of the copied sources")
	flag.StringP(flagTimeLayout, "t", "Default", "the layout to use for report timestamps.  Use go layout format, or the name of a layout.  Use gocopy layouts to show all named layouts.")
	flag.StringP(flagTimeZone, "z", "Local", "the timezone to use for report timestamps")
}

func initLogFlags(flag *pflag.FlagSet) {
	flag.String(flagLogPath, "-", "path to the log output.  Defaults to the operating system's stdout device.")
	flag.String(flagLogPerm, "0600", "file permissions for log output file as unix file mode.")
	flag.StringP(flagLogFormat, "f", DefaultLogFormat, "output log format.  Either jsonl or text.")
}

func initCopyCommandFlags(flag *pflag.FlagSet) {
	initDebugFlags(flag)
	initConfigFlags(flag)
	initCopyFlags(flag)
	initLogFlags(flag)
}

func initViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	err := v.BindPFlags(cmd.Flags())
	if err != nil {
		return v, errors.Errorf("error binding flag set to viper: %w", err)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv() // set environment variables to overwrite config
	if configPath := v.GetString(flagConfig); len(configPath) > 0 {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return v, errors.Errorf("error reading config file %q: %w", configPath, err)
		}
	}
	return v, nil
}

func checkLogConfig(v *viper.Viper, args []string) error {
	logPath := v.GetString(flagLogPath)
	if len(logPath) == 0 {
		return errors.New("log path is missing")
	}
	logPerm := v.GetString(flagLogPerm)
	if len(logPerm) == 0 {
		return errors.New("log perm is missing")
	}
	_, err := strconv.ParseUint(logPerm, 8, 32)
	if err != nil {
		return errors.Errorf("invalid format for log perm: %s", logPerm)
	}
	logFormat := v.GetString(flagLogFormat)
	if logFormat != log.FormatJSONL && logFormat != log.FormatText {
		return errors.Errorf("invalid log format %q, expecting %q or %q", logFormat, log.FormatJSONL, log.FormatText)
	}
	return nil
}

func checkCopyConfig(v *viper.Viper, args []string) error {
	if len(args) < 2 {
		return errors.Errorf("expecting at least 2 positional arguments for sources and destination, but found %d arguments", len(args))
	}
	for _, arg := range args {
		if len(arg) == 0 {
			return errors.New("positional arguments cannot be empty")
		}
	}
	if closeTimeout := v.GetDuration(flagCloseTimeout); closeTimeout <= 0 {
		return errors.Errorf("%q value %q is invalid, expecting a positive duration", flagCloseTimeout, closeTimeout)
	}
	switch progress := v.GetString(flagProgress); progress {
	case progressAuto, progressBar, progressLines, progressNone:
	default:
		return errors.Errorf("invalid progress %q, expecting one of %q", progress, []string{progressAuto, progressBar, progressLines, progressNone})
	}
	if _, err := ts.ParseLocation(v.GetString(flagTimeZone)); err != nil {
		return errors.Errorf("error parsing time zone location %q: %w", v.GetString(flagTimeZone), err)
	}
	if err := checkLogConfig(v, args); err != nil {
		return errors.Errorf("error with log configuration: %w", err)
	}
	return nil
}

// checkSources checks each source against the destination for cycle errors.
func checkSources(sources []string, destination string) error {
	destinationPath, err := filepath.Abs(destination)
	if err != nil {
		return errors.Errorf("error resolving destination %q: %w", destination, err)
	}
	for _, source := range sources {
		sourcePath, err := filepath.Abs(source)
		if err != nil {
			return errors.Errorf("error resolving source %q: %w", source, err)
		}
		if err := lfs.Check(sourcePath, destinationPath); err != nil {
			return err
		}
	}
	return nil
}

// expandSources expands source arguments containing glob patterns, including "**".
// Arguments without patterns are kept as is, even if they do not exist.
func expandSources(args []string) ([]string, error) {
	sources := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			sources = append(sources, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, errors.Errorf("error expanding source pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("source pattern %q did not match any files", arg)
		}
		sources = append(sources, matches...)
	}
	return sources, nil
}

func initLogger(path string, perm string, format string, debug bool) (*log.SimpleLogger, error) {

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if path == os.DevNull {
		return log.NewSimpleLogger(io.Discard, format, level, false)
	}

	if path == "-" {
		return log.NewSimpleLogger(os.Stdout, format, level, term.IsTerminal(int(os.Stdout.Fd())))
	}

	fileMode := os.FileMode(0600)

	if len(perm) > 0 {
		fm, err := strconv.ParseUint(perm, 8, 32)
		if err != nil {
			return nil, errors.Errorf("error parsing file permissions for log file from %q", perm)
		}
		fileMode = os.FileMode(fm)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return nil, errors.Errorf("error opening log file %q: %w", path, err)
	}

	return log.NewSimpleLogger(f, format, level, false)
}

type ReportEntry struct {
	Index  int    `yaml:"index"`
	Source string `yaml:"source"`
}

type Report struct {
	Destination string        `yaml:"destination"`
	Total       int           `yaml:"total"`
	Copied      []ReportEntry `yaml:"copied"`
	Cancelled   bool          `yaml:"cancelled"`
	Started     string        `yaml:"started"`
	Finished    string        `yaml:"finished"`
}

func writeReport(path string, report *Report) error {
	b, err := yaml.Marshal(report)
	if err != nil {
		return errors.Errorf("error marshaling report: %w", err)
	}
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.Errorf("error writing report to %q: %w", path, err)
	}
	return nil
}

func resolveProgress(progress string, terminal bool) string {
	if progress != progressAuto {
		return progress
	}
	if terminal {
		return progressBar
	}
	return progressLines
}

// reporter receives the job callbacks on the main loop.
type reporter struct {
	out    io.Writer
	mode   string
	total  int
	bar    *pterm.ProgressbarPrinter
	copied []ReportEntry
}

func (r *reporter) Callback(source string, index int, total int) {
	r.copied = append(r.copied, ReportEntry{Index: index, Source: source})
	switch {
	case r.bar != nil:
		r.bar.UpdateTitle(filepath.Base(source))
		r.bar.Increment()
	case r.mode == progressLines:
		fmt.Fprintf(r.out, "%s [%d/%d] %s\n", color.GreenString("copied"), index, total, source)
	}
}

func (r *reporter) Copied() []ReportEntry {
	return r.copied
}

func (r *reporter) Finish(cancelled bool) {
	if r.bar != nil {
		_, _ = r.bar.Stop()
	}
	if r.mode == progressNone {
		return
	}
	message := fmt.Sprintf("copied %d of %d sources", len(r.copied), r.total)
	switch {
	case cancelled:
		fmt.Fprintln(r.out, color.YellowString(message+" before the copy was interrupted"))
	case len(r.copied) < r.total:
		fmt.Fprintln(r.out, color.RedString(message))
	case r.bar != nil:
		pterm.Success.WithWriter(r.out).Println(message)
	default:
		fmt.Fprintln(r.out, color.GreenString(message))
	}
}

func newReporter(out io.Writer, mode string, total int) (*reporter, error) {
	r := &reporter{
		out:    out,
		mode:   mode,
		total:  total,
		copied: []ReportEntry{},
	}
	if mode == progressBar && total > 0 {
		bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle("Copying").WithWriter(out).Start()
		if err != nil {
			return nil, errors.Errorf("error starting progress bar: %w", err)
		}
		r.bar = bar
	}
	return r, nil
}

type runCopyInput struct {
	Sources      []string
	Destination  string
	Logger       *log.SimpleLogger
	Reporter     *reporter
	CloseTimeout time.Duration
}

// runCopy runs a copy job with callbacks delivered on the calling goroutine.
// When ctx is done, the job is cancelled and given the close timeout to finish the current source.
// Returns whether the job was cancelled.
func runCopy(ctx context.Context, input *runCopyInput) (bool, error) {
	loop := mainloop.New()

	j := job.NewCopyJob(&job.NewCopyJobInput{
		Sources:      input.Sources,
		Destination:  input.Destination,
		Callback:     input.Reporter.Callback,
		FileSystem:   lfs.NewLocalFileSystem(),
		MainContext:  loop,
		Logger:       input.Logger.WithComponent(job.Component),
		CloseTimeout: input.CloseTimeout,
	})
	h := job.NewHandle(j)

	cancelled := false

	g := new(errgroup.Group)
	g.Go(func() error {
		defer loop.Close()
		select {
		case <-j.Done():
			return nil
		case <-ctx.Done():
		}
		cancelled = h.Cancel()
		input.Logger.Info("Copy interrupted", map[string]interface{}{
			"job":       h.String(),
			"cancelled": cancelled,
		})
		if !j.Close() {
			return errors.Errorf("copy did not stop within %s", input.CloseTimeout)
		}
		return nil
	})

	errRun := loop.Run(context.Background())

	if err := g.Wait(); err != nil {
		return cancelled, err
	}
	if errRun != nil {
		return cancelled, errRun
	}
	return cancelled, nil
}

func main() {
	rootCommand := &cobra.Command{
		Use:                   `gocopy [flags]`,
		DisableFlagsInUseLine: true,
		Short: strings.Join([]string{
			"gocopy is a simple command line program for copying files, directories, and symbolic links into a destination directory.",
			"Directories are merged into the destination.  Files and symbolic links are copied under their own name.",
		}, "\n"),
	}

	layoutsCommand := &cobra.Command{
		Use:                   `layouts`,
		DisableFlagsInUseLine: true,
		Short:                 "show supported timestamp layouts",
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range ts.LayoutNames() {
				fmt.Printf("%s: %s\n", name, ts.NamedLayouts[name])
			}
			return nil
		},
	}

	copyCommand := &cobra.Command{
		Use:                   "copy SOURCE... DESTINATION",
		DisableFlagsInUseLine: true,
		Short:                 "copy",
		Long:                  "copy sources into the destination directory",
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {

			v, err := initViper(cmd)
			if err != nil {
				return errors.Errorf("error initializing viper: %w", err)
			}

			if errConfig := checkCopyConfig(v, args); errConfig != nil {
				return errConfig
			}

			logger, err := initLogger(
				v.GetString(flagLogPath),
				v.GetString(flagLogPerm),
				v.GetString(flagLogFormat),
				v.GetBool(flagDebug))
			if err != nil {
				return errors.Errorf("error initializing logger: %w", err)
			}

			destination := args[len(args)-1]

			sources, err := expandSources(args[:len(args)-1])
			if err != nil {
				return err
			}

			if err := checkSources(sources, destination); err != nil {
				return err
			}

			timeLayout := ts.ParseLayout(v.GetString(flagTimeLayout))
			timeZone, err := ts.ParseLocation(v.GetString(flagTimeZone))
			if err != nil {
				return errors.Errorf("error parsing time zone location %q: %w", v.GetString(flagTimeZone), err)
			}

			r, err := newReporter(
				os.Stdout,
				resolveProgress(v.GetString(flagProgress), term.IsTerminal(int(os.Stdout.Fd()))),
				len(sources))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := time.Now()

			cancelled, errCopy := runCopy(ctx, &runCopyInput{
				Sources:      sources,
				Destination:  destination,
				Logger:       logger,
				Reporter:     r,
				CloseTimeout: v.GetDuration(flagCloseTimeout),
			})

			finished := time.Now()

			r.Finish(cancelled)

			if reportPath := v.GetString(flagReport); len(reportPath) > 0 {
				err := writeReport(reportPath, &Report{
					Destination: destination,
					Total:       len(sources),
					Copied:      r.Copied(),
					Cancelled:   cancelled,
					Started:     timeLayout.Format(started, timeZone),
					Finished:    timeLayout.Format(finished, timeZone),
				})
				if err != nil {
					return err
				}
			}

			if errCopy != nil {
				return errCopy
			}

			if copied := len(r.Copied()); copied < len(sources) {
				return errors.Errorf("copied %d of %d sources", copied, len(sources))
			}

			return nil
		},
	}
	initCopyCommandFlags(copyCommand.Flags())

	versionCommand := &cobra.Command{
		Use:                   `version`,
		DisableFlagsInUseLine: true,
		Short:                 "show version",
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(GoCopyVersion)
			return nil
		},
	}

	rootCommand.AddCommand(layoutsCommand, copyCommand, versionCommand)

	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gocopy: "+err.Error())
		fmt.Fprintln(os.Stderr, "Try \"gocopy --help\" for more information.")
		os.Exit(1)
	}
}
