package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"shellfs/internal/config"
	systemprompt "shellfs/system_prompt"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	debugMode   = flag.Bool("d", false, "Enable debug mode")
	logFile     = flag.String("log-file", "", "Log file path (logs disabled by default)")
	configPath  = flag.String("config", "config.json", "Path to the configuration file")
	listTools   = flag.Bool("list-tools", false, "Print the tool schemas as JSON and exit")
	printPrompt = flag.Bool("print-prompt", false, "Print the agent system prompt for this sandbox and exit")
	assumeYes   = flag.Bool("yes", false, "Approve tool calls that require confirmation")
	version     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("shellfs", Version)
		return
	}

	logger, closer, err := initLogger(*debugMode, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger.Info().Str("version", Version).Msg("shellfs starting")

	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("shellfs failed")
		fmt.Fprintf(os.Stderr, "shellfs: %v\n", err)
		if closer != nil {
			closer.Close()
		}
		os.Exit(1)
	}
}

func run(logger zerolog.Logger) error {
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if *listTools {
		return writeToolSchemas(os.Stdout, a.registry)
	}
	if *printPrompt {
		prompt, err := systemprompt.ForSandbox(a.resolver.Roots().List(), a.resolver.Workdir())
		if err != nil {
			return err
		}
		fmt.Print(prompt)
		return nil
	}

	approve := newToolApprover()
	if *assumeYes {
		approve = approveAll
	}

	// Batch mode reads tool calls from stdin; "-" forces it on a terminal.
	args := flag.Args()
	if (len(args) > 0 && args[0] == "-") || !term.IsTerminal(int(os.Stdin.Fd())) {
		return runBatch(ctx, a, os.Stdin, os.Stdout, approve)
	}
	return runConsole(ctx, a, cfg, approve)
}

func initLogger(debug bool, logFilePath string) (zerolog.Logger, io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// No logging to the console by default, stdout carries tool results.
	var output io.Writer = io.Discard
	var closer io.Closer
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		output = file
		closer = file
	}

	return zerolog.New(output).With().Timestamp().Logger(), closer, nil
}
