// Package archmap maps Rust target-triple architecture components to
// Debian architecture names, generalizing the per-package-manager
// architecture tables a multi-format packager would carry into the single
// table this tool needs.
package archmap

import (
	"runtime"
	"strings"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
)

// RustToDebian maps the architecture component of a Rust target triple
// (e.g. "x86_64-unknown-linux-gnu") to the Debian architecture name used in
// the control file and in the output package filename.
var RustToDebian = map[string]string{
	"x86_64":     "amd64",
	"i686":       "i386",
	"i586":       "i386",
	"aarch64":    "arm64",
	"arm":        "armel",
	"armv7":      "armhf",
	"armhf":      "armhf",
	"riscv64gc":  "riscv64",
	"riscv64":    "riscv64",
	"powerpc64":  "ppc64",
	"powerpc64le": "ppc64el",
	"s390x":      "s390x",
	"mips64el":   "mips64el",
}

// debianToRust is the reverse of RustToDebian, used by DefaultRustTarget to
// pick a Rust target triple architecture component for a Debian
// architecture name. Host detection uses goarchToDebian instead.
var debianToRust = map[string]string{
	"amd64":   "x86_64",
	"i386":    "i686",
	"arm64":   "aarch64",
	"armel":   "arm",
	"armhf":   "armv7",
	"riscv64": "riscv64gc",
	"ppc64":   "powerpc64",
	"ppc64el": "powerpc64le",
	"s390x":   "s390x",
}

// goarchToDebian maps runtime.GOARCH values to Debian architecture names for
// host-architecture detection when no Rust target triple is available.
var goarchToDebian = map[string]string{
	"amd64":    "amd64",
	"386":      "i386",
	"arm64":    "arm64",
	"arm":      "armhf",
	"riscv64":  "riscv64",
	"ppc64":    "ppc64",
	"ppc64le":  "ppc64el",
	"s390x":    "s390x",
	"mips64le": "mips64el",
}

// FromTargetTriple extracts the architecture component of a Rust target
// triple (its first dash-separated field) and maps it to a Debian
// architecture name.
func FromTargetTriple(triple string) (string, error) {
	if triple == "" {
		return HostDebianArch()
	}

	arch := strings.SplitN(triple, "-", 2)[0]

	debianArch, ok := RustToDebian[arch]
	if !ok {
		return "", pkgerrors.New(pkgerrors.ErrArchitecture,
			"unrecognized Rust target architecture: "+arch).
			WithContext("target", triple)
	}

	return debianArch, nil
}

// HostDebianArch returns the Debian architecture name for the architecture
// this process is running on.
func HostDebianArch() (string, error) {
	debianArch, ok := goarchToDebian[runtime.GOARCH]
	if !ok {
		return "", pkgerrors.New(pkgerrors.ErrArchitecture,
			"unrecognized host architecture: "+runtime.GOARCH)
	}

	return debianArch, nil
}

// DefaultRustTarget returns a plausible Rust target-triple architecture
// component for the given Debian architecture, used to pick a --target for
// cargo when the caller only specified a Debian architecture.
func DefaultRustTarget(debianArch string) (string, error) {
	rustArch, ok := debianToRust[debianArch]
	if !ok {
		return "", pkgerrors.New(pkgerrors.ErrArchitecture,
			"no known Rust target for Debian architecture: "+debianArch)
	}

	return rustArch, nil
}
