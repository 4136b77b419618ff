// Package shell provides process execution for external tool invocation
// (cargo, strip, objcopy, dpkg-shlibdeps, gzip, xz, dpkg).
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
)

const timestampFormat = "2006-01-02 15:04:05"

// DecoratedWriter prefixes streamed command output with a timestamp and tag.
type DecoratedWriter struct {
	writer io.Writer
	tag    string
	buffer []byte
}

// NewDecoratedWriter creates a DecoratedWriter wrapping dst.
func NewDecoratedWriter(dst io.Writer, tag string) *DecoratedWriter {
	return &DecoratedWriter{writer: dst, tag: tag, buffer: make([]byte, 0, 1024)}
}

func (dw *DecoratedWriter) Write(p []byte) (int, error) {
	originalLen := len(p)
	dw.buffer = append(dw.buffer, p...)

	for {
		lineEnd := bytes.IndexByte(dw.buffer, '\n')
		if lineEnd == -1 {
			break
		}

		line := dw.buffer[:lineEnd+1]
		dw.buffer = dw.buffer[lineEnd+1:]

		if err := dw.writeLine(line); err != nil {
			return originalLen, err
		}
	}

	return originalLen, nil
}

func (dw *DecoratedWriter) writeLine(line []byte) error {
	content := strings.TrimRight(string(line), "\n\r")
	if strings.TrimSpace(content) == "" {
		_, err := dw.writer.Write(line)
		return err
	}

	timestamp := time.Now().Format(timestampFormat)
	decorated := pterm.Sprintf("%s %s [%s] %s\n",
		pterm.FgGray.Sprint(timestamp),
		pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint("INFO "),
		pterm.FgYellow.Sprint(dw.tag),
		content,
	)

	_, err := dw.writer.Write([]byte(decorated))

	return err
}

// Exec runs name with args in dir, streaming decorated output to stdout.
func Exec(dir, name string, args ...string) error {
	return ExecContext(context.Background(), dir, name, args...)
}

// ExecContext runs name with args in dir under ctx, streaming decorated output.
func ExecContext(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	decorated := NewDecoratedWriter(os.Stdout, name)
	cmd.Stdout = decorated
	cmd.Stderr = decorated

	if dir != "" {
		cmd.Dir = dir
	}

	logger.Logger.Debug("executing command", logger.Logger.Args("command", name, "args", args, "dir", dir))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		logger.Logger.Error("command execution failed",
			logger.Logger.Args("command", name, "args", args, "duration", duration, "error", err))

		return errors.Wrapf(err, "failed to execute command %s", name)
	}

	logger.Logger.Debug("command execution completed", logger.Logger.Args("command", name, "duration", duration))

	return nil
}

// Output runs name with args in dir and returns captured stdout, used for
// commands whose output is machine-parsed (cargo build --message-format=json).
func Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, errors.Wrapf(err, "failed to execute command %s: %s", name, stderr.String())
	}

	return out, nil
}

// LookPath reports whether name is available on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// allowedSudoCommands restricts ExecWithSudo to the package-installation tools
// this module actually shells out to.
var allowedSudoCommands = map[string]bool{
	"dpkg":    true,
	"apt-get": true,
}

// ExecWithSudo runs a package-installation command, prefixing it with sudo
// when the current process is not already running as root.
func ExecWithSudo(dir, name string, args ...string) error {
	if !allowedSudoCommands[name] {
		return fmt.Errorf("command %q is not allowed for sudo execution", name)
	}

	needsSudo := os.Geteuid() != 0

	var cmd *exec.Cmd

	if needsSudo {
		sudoArgs := append([]string{name}, args...)
		// #nosec G204 - command name is validated against allowlist
		cmd = exec.Command("sudo", sudoArgs...)
	} else {
		cmd = exec.Command(name, args...)
	}

	decorated := NewDecoratedWriter(os.Stdout, name)
	cmd.Stdout = decorated
	cmd.Stderr = decorated

	if dir != "" {
		cmd.Dir = dir
	}

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "failed to execute command %s", name)
	}

	return nil
}
