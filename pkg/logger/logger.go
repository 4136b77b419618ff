// Package logger provides logging for cargo-deb.
package logger

import (
	"fmt"

	"github.com/pterm/pterm"
)

// argsToLoggerArgs converts key/value pairs to pterm logger arguments.
func argsToLoggerArgs(args ...any) []pterm.LoggerArgument {
	if len(args) == 0 {
		return nil
	}

	var loggerArgs []pterm.LoggerArgument

	for i := 0; i < len(args)-1; i += 2 {
		key := fmt.Sprintf("%v", args[i])
		value := args[i+1]
		loggerArgs = append(loggerArgs, pterm.LoggerArgument{
			Key:   key,
			Value: value,
		})
	}

	return loggerArgs
}

var (
	ptermLogger = pterm.DefaultLogger.
			WithLevel(pterm.LogLevelInfo).
			WithCaller(false).
			WithTime(true).
			WithKeyStyles(map[string]pterm.Style{
			"package":      *pterm.NewStyle(pterm.FgGreen),
			"version":      *pterm.NewStyle(pterm.FgGreen),
			"architecture": *pterm.NewStyle(pterm.FgGreen),
			"variant":      *pterm.NewStyle(pterm.FgGreen),
			"path":         *pterm.NewStyle(pterm.FgLightBlue),
			"command":      *pterm.NewStyle(pterm.FgLightBlue),
			"args":         *pterm.NewStyle(pterm.FgLightBlue),
			"size":         *pterm.NewStyle(pterm.FgBlue),
			"duration":     *pterm.NewStyle(pterm.FgBlue),
			"operation":    *pterm.NewStyle(pterm.FgCyan),
		})
	// Logger is the global cargo-deb logger instance.
	Logger         = &PackLogger{ptermLogger: ptermLogger}
	verboseEnabled = false
)

// PackLogger provides cargo-deb leveled, structured logging.
type PackLogger struct {
	ptermLogger *pterm.Logger
}

// Info logs an informational message.
func (l *PackLogger) Info(msg string, args ...[]pterm.LoggerArgument) {
	if len(args) > 0 && len(args[0]) > 0 {
		l.ptermLogger.Info(msg, args...)
	} else {
		l.ptermLogger.Info(msg)
	}
}

// Debug logs a debug message, only shown when verbose mode is enabled.
func (l *PackLogger) Debug(msg string, args ...[]pterm.LoggerArgument) {
	if !verboseEnabled {
		return
	}

	if len(args) > 0 && len(args[0]) > 0 {
		l.ptermLogger.Debug(msg, args...)
	} else {
		l.ptermLogger.Debug(msg)
	}
}

// Warn logs a warning message.
func (l *PackLogger) Warn(msg string, args ...[]pterm.LoggerArgument) {
	if len(args) > 0 && len(args[0]) > 0 {
		l.ptermLogger.Warn(msg, args...)
	} else {
		l.ptermLogger.Warn(msg)
	}
}

// Error logs an error message.
func (l *PackLogger) Error(msg string, args ...[]pterm.LoggerArgument) {
	if len(args) > 0 && len(args[0]) > 0 {
		l.ptermLogger.Error(msg, args...)
	} else {
		l.ptermLogger.Error(msg)
	}
}

// Fatal logs a fatal message and exits the process.
func (l *PackLogger) Fatal(msg string, args ...[]pterm.LoggerArgument) {
	if len(args) > 0 && len(args[0]) > 0 {
		l.ptermLogger.Fatal(msg, args...)
	} else {
		l.ptermLogger.Fatal(msg)
	}
}

// Args converts key/value pairs into pterm logger arguments.
func (l *PackLogger) Args(args ...any) []pterm.LoggerArgument {
	return argsToLoggerArgs(args...)
}

// Step prints a colored step header for a major pipeline phase.
func (l *PackLogger) Step(emoji, msg string) {
	pterm.Info.WithPrefix(pterm.Prefix{
		Text:  emoji,
		Style: pterm.NewStyle(pterm.FgCyan),
	}).Println(msg)
}

// SetVerbose configures logger verbosity.
func SetVerbose(verbose bool) {
	verboseEnabled = verbose
	if verbose {
		ptermLogger = ptermLogger.WithLevel(pterm.LogLevelTrace)
	} else {
		ptermLogger = ptermLogger.WithLevel(pterm.LogLevelInfo)
	}

	Logger.ptermLogger = ptermLogger
}
