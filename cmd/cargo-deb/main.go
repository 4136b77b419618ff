// Command cargo-deb builds Debian packages from a Cargo project.
package main

import (
	"os"

	"github.com/cargo-deb-go/cargo-deb/cmd/cargo-deb/command"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
)

func main() {
	if err := command.Execute(); err != nil {
		logger.Logger.Error(err.Error())
		os.Exit(1)
	}
}
