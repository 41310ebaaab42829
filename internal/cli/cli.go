package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("cosimgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cosimgo - A co-simulation master for FMI slaves.

Usage:
  cosimgo [options] [PROJECT_PATH]

Arguments:
  PROJECT_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	projectFlag := flagSet.String("project", "", "Path to the project file or directory.")
	pFlag := flagSet.String("p", "", "Path to the project file or directory (shorthand).")
	outputFlag := flagSet.String("output", "", "Write the recorded time series to this CSV file.")
	chartFlag := flagSet.String("chart", "", "Render the recorded time series to this HTML file.")
	plotFlag := flagSet.String("plot", "", "Render the recorded time series to this image (png, svg, pdf, ...).")
	liveURLFlag := flagSet.String("live-url", "", "Stream recorded rows to this socket.io server.")
	liveNSFlag := flagSet.String("live-namespace", "/", "socket.io namespace for --live-url.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}

	var path string
	switch {
	case *projectFlag != "":
		path = *projectFlag
	case *pFlag != "":
		path = *pFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 || (flagSet.NArg() == 1 && path != flagSet.Arg(0)) {
		return nil, false, usageError("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if *liveNSFlag != "" && !strings.HasPrefix(*liveNSFlag, "/") {
		return nil, false, usageError("invalid live-namespace: must start with '/'")
	}

	config, err := app.NewConfig(app.Config{
		ProjectPath:     path,
		OutputPath:      *outputFlag,
		ChartPath:       *chartFlag,
		PlotPath:        *plotFlag,
		LiveURL:         *liveURLFlag,
		LiveNamespace:   *liveNSFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	return config, false, nil
}
