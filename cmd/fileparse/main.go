// Package main is the fileparse CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/fileparse/internal/cli"
	"github.com/hyperjump/fileparse/internal/config"
	"github.com/hyperjump/fileparse/internal/decode"
	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/parser"
	"github.com/hyperjump/fileparse/internal/record"
	"github.com/hyperjump/fileparse/internal/server"
	"github.com/hyperjump/fileparse/internal/watcher"
	"github.com/hyperjump/fileparse/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// cwdConfigName is picked up from the working directory when --config is not given.
const cwdConfigName = "fileparse.yaml"

// loadConfig loads config from path. When path is empty it uses fileparse.yaml
// from the current directory if there is one, and plain defaults otherwise.
// Returns the config and the path that was actually loaded ("" for none).
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, cwdConfigName)
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		return exitUsage
	}
	switch args[0] {
	case "serve":
		return runServe(args[1:], stderr)
	case "watch":
		return runWatch(args[1:], stdout, stderr)
	case "formats":
		return runFormats(args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "fileparse version %s\n", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		return runParse(args, stdin, stdout, stderr)
	}
}

// parseFlags are shared by the default parse command and watch.
type parseFlags struct {
	format     string
	encoding   string
	noStream   bool
	schema     string
	delimiter  string
	output     string
	configPath string
	debug      bool
}

func newParseFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *parseFlags) {
	pf := &parseFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&pf.format, "format", "", "format override (csv, tsv, json, ndjson, xml, ini, text, fixed, ...)")
	fs.StringVar(&pf.format, "f", "", "shorthand for --format")
	fs.StringVar(&pf.encoding, "encoding", "", "file encoding (utf-8, latin-1, ...); default tries UTF-8 then Latin-1")
	fs.StringVar(&pf.encoding, "e", "", "shorthand for --encoding")
	fs.BoolVar(&pf.noStream, "no-stream", false, "read all records before printing")
	fs.StringVar(&pf.schema, "fixed-schema", "", "fixed-width schema: comma-separated name:width pairs, e.g. name:20,age:3")
	fs.StringVar(&pf.delimiter, "delimiter", "", "csv/tsv delimiter override")
	fs.StringVar(&pf.delimiter, "d", "", "shorthand for --delimiter")
	fs.StringVar(&pf.output, "output", "", "output format: jsonl, json, yaml or table (default jsonl, yaml with --no-stream)")
	fs.StringVar(&pf.output, "o", "", "shorthand for --output")
	fs.StringVar(&pf.configPath, "config", "", "config file path (default ./"+cwdConfigName+" when present)")
	fs.BoolVar(&pf.debug, "debug", false, "enable debug logging on stderr")
	return fs, pf
}

// parseRun is a fully resolved parse invocation.
type parseRun struct {
	encoding string
	opts     parser.Options
	output   cli.OutputFormat
	stream   bool
}

// usageError marks invalid command-line input.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// resolve merges flags with config defaults. Flags win.
func (pf *parseFlags) resolve(cfg *config.Config) (*parseRun, error) {
	pr := &parseRun{
		encoding: pf.encoding,
		opts:     parser.Options{Format: pf.format},
		stream:   !pf.noStream,
	}
	if pr.encoding == "" {
		pr.encoding = cfg.Parse.Encoding
	}
	if pf.schema != "" {
		schema, err := decode.ParseSchema(pf.schema)
		if err != nil {
			return nil, &usageError{fmt.Errorf("invalid --fixed-schema, expected name:width pairs: %w", err)}
		}
		pr.opts.Schema = schema
	}
	delim := pf.delimiter
	if delim == "" {
		delim = cfg.Parse.Delimiter
	}
	if delim != "" {
		d, err := decode.ParseDelimiter(delim)
		if err != nil {
			return nil, &usageError{err}
		}
		pr.opts.Delimiter = d
	}
	out := pf.output
	if out == "" {
		out = cfg.Parse.Output
	}
	switch {
	case out != "":
		of, err := cli.ParseOutputFormat(out)
		if err != nil {
			return nil, &usageError{err}
		}
		pr.output = of
	case pr.stream:
		pr.output = cli.OutputJSONL
	default:
		pr.output = cli.OutputYAML
	}
	return pr, nil
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) || parser.IsConfigError(err) {
		return exitUsage
	}
	return exitFailure
}

func runParse(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, pf := newParseFlagSet("fileparse", stderr)
	fs.Usage = func() { printParseUsage(fs) }
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		printParseUsage(fs)
		return exitUsage
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(pf.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		return exitUsage
	}
	pr, err := pf.resolve(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		printParseUsage(fs)
		return exitUsage
	}
	logger := zap.NewNop()
	if pf.debug || cfg.Debug {
		if logger, err = utils.NewLogger(true); err != nil {
			fmt.Fprintf(stderr, "fileparse: failed to create logger: %v\n", err)
			return exitFailure
		}
		defer func() { _ = logger.Sync() }()
	}

	src := parser.Path(path)
	if path == "-" {
		src = parser.Stream(stdin)
	}
	if err := parseTo(stdout, src, pr, logger); err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// parseTo parses src and writes its records to w.
func parseTo(w io.Writer, src parser.Source, pr *parseRun, logger *zap.Logger) error {
	fp := parser.New(parser.WithEncoding(pr.encoding), parser.WithLogger(logger))
	if !pr.stream {
		recs, err := fp.ParseAll(src, pr.opts)
		if err != nil {
			return err
		}
		return cli.WriteRecords(w, recs, pr.output)
	}
	recs, err := fp.Parse(src, pr.opts)
	if err != nil {
		return err
	}
	defer recs.Close()
	out := cli.NewRecordWriter(w, pr.output)
	for rec, err := range recs.All() {
		if err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Write(rec); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return out.Close()
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file path (default ./"+cwdConfigName+" when present)")
	host := fs.String("host", "", "listen host (overrides config)")
	port := fs.Int("port", 0, "listen port (overrides config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitUsage
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	srv := server.NewServer(cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return exitFailure
		}
		return exitOK
	case <-sigChan:
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("shutdown failed", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

func runWatch(args []string, stdout, stderr io.Writer) int {
	fs, pf := newParseFlagSet("watch", stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: fileparse watch [flags] [path...]\n\nParses each file now and again whenever it changes. Without paths, watch.files from the config is used.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return exitUsage
	}
	cfg, _, err := loadConfig(pf.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitUsage
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = cfg.Watch.Files
	}
	if len(paths) == 0 {
		fs.Usage()
		return exitUsage
	}
	pr, err := pf.resolve(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		return exitUsage
	}
	logger, err := utils.NewLogger(cfg.Debug || pf.debug)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchFiles(ctx, paths, pr, cfg.Watch.Debounce, stdout, logger)
}

// watchFiles parses every path once, then again after each change, until ctx
// is done. Parse failures are logged and do not stop the watch.
func watchFiles(ctx context.Context, paths []string, pr *parseRun, debounce time.Duration, stdout io.Writer, logger *zap.Logger) int {
	reparse := make(chan string, len(paths))
	w, err := watcher.NewWatcher(paths,
		func(path string) {
			select {
			case reparse <- path:
			case <-ctx.Done():
			}
		},
		watcher.WithDebounce(debounce),
		watcher.WithLogger(logger),
		watcher.WithOnRemove(func(path string) { logger.Warn("watched file removed", zap.String("path", path)) }),
	)
	if err != nil {
		logger.Error("watch setup failed", zap.Error(err))
		return exitFailure
	}
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start watcher", zap.Error(err))
		return exitFailure
	}
	defer w.Stop()

	parseOne := func(path string) {
		if err := parseTo(stdout, parser.Path(path), pr, logger); err != nil {
			logger.Warn("parse failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("parsed", zap.String("path", path))
	}
	for _, path := range w.Files() {
		parseOne(path)
	}
	for {
		select {
		case <-ctx.Done():
			return exitOK
		case path := <-reparse:
			parseOne(path)
		}
	}
}

func runFormats(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("formats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("output", string(cli.OutputTable), "output format: jsonl, json, yaml or table")
	fs.StringVar(output, "o", string(cli.OutputTable), "shorthand for --output")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	of, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		return exitUsage
	}
	all := format.All()
	recs := make([]*record.Record, 0, len(all))
	for _, f := range all {
		recs = append(recs, record.Of(
			"format", f.String(),
			"extensions", strings.Join(f.Extensions(), " "),
			"binary", f.Binary(),
		))
	}
	if err := cli.WriteRecords(stdout, recs, of); err != nil {
		fmt.Fprintf(stderr, "fileparse: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func printParseUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: fileparse [flags] <path>\n\nPath may be - to read standard input. Flags may also follow the path.\n\n")
	fs.PrintDefaults()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `fileparse - extract records from csv, json, xml, ini, text and more

Usage:
  fileparse [flags] <path>          Parse a file and print its records
  fileparse watch [flags] <path>... Parse files again whenever they change
  fileparse serve [flags]           Start the HTTP server
  fileparse formats                 List supported formats
  fileparse version                 Show version
  fileparse help                    Show this help

Parse Flags:
  -f, --format string       Format override (csv, tsv, json, ndjson, xml, ini, text, fixed, yaml, ...)
  -e, --encoding string     File encoding (default: UTF-8, falling back to Latin-1)
  --no-stream               Read all records before printing
  --fixed-schema string     Fixed-width schema, e.g. name:20,age:3
  -d, --delimiter string    CSV/TSV delimiter override
  -o, --output string       jsonl, json, yaml or table (default: jsonl, yaml with --no-stream)
  --config string           Config file path (default: ./fileparse.yaml when present)
  --debug                   Enable debug logging on stderr

Serve Flags:
  --config string    Config file path
  --host string      Listen host (default from config: localhost)
  --port int         Listen port (default from config: 8080)
  --debug            Enable debug logging

Examples:
  fileparse data.csv
  fileparse data.csv --no-stream -o table
  fileparse -f fixed --fixed-schema name:20,age:3 people.txt
  cat events.log | fileparse -f ndjson -
  fileparse watch -o table inventory.xlsx
  fileparse serve --port 9000`)
}
