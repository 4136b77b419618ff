// Package debugsplit separates debug information out of ELF binaries with
// objcopy and strip, and derives the GNU build-id path a dbgsym package
// stores split debug info under.
package debugsplit

import (
	"debug/elf"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
	"github.com/cargo-deb-go/cargo-deb/pkg/shell"
)

// Split is the result of separating one binary's debug info: the path to
// the stripped binary (same as the input, stripped in place) and the path
// to the extracted debug-info file plus the path it should be installed at
// inside whichever package ships it (the dbgsym sibling or the main package).
type Split struct {
	BinaryPath    string
	DebugInfoPath string // temp file holding the extracted .debug contents
	BuildIDPath   string // e.g. usr/lib/debug/.build-id/ab/cdef....debug
}

// IsELF reports whether path is readable as an ELF file.
func IsELF(path string) bool {
	f, err := elf.Open(path)
	if err != nil {
		return false
	}

	defer f.Close()

	return true
}

// BuildID extracts the GNU build-id note from an ELF file, if present.
func BuildID(path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to open ELF file").
			WithContext("path", path)
	}
	defer f.Close()

	section := f.Section(".note.gnu.build-id")
	if section == nil {
		return "", nil
	}

	data, err := section.Data()
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to read build-id section").
			WithContext("path", path)
	}

	return parseBuildIDNote(data)
}

// parseBuildIDNote parses an ELF .note section's content looking for an
// NT_GNU_BUILD_ID (type 3) note, returning its payload as a lowercase hex
// string.
func parseBuildIDNote(data []byte) (string, error) {
	for len(data) > 12 {
		nameSize := byteOrderUint32(data[0:4])
		descSize := byteOrderUint32(data[4:8])
		noteType := byteOrderUint32(data[8:12])

		offset := 12
		nameEnd := offset + align4(int(nameSize))

		if nameEnd > len(data) {
			break
		}

		descStart := nameEnd
		descEnd := descStart + int(descSize)

		if descEnd > len(data) {
			break
		}

		if noteType == 3 { // NT_GNU_BUILD_ID
			return hex.EncodeToString(data[descStart:descEnd]), nil
		}

		data = data[align4(descEnd):]
	}

	return "", nil
}

func byteOrderUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// DebugInfoPath derives the usr/lib/debug path a binary's split debug info
// is installed at. When the binary has a build-id, the canonical
// .build-id/xx/yyyy....debug scheme is used; otherwise the path is derived
// from the binary's own install destination.
func DebugInfoPath(buildID, installedDest string) string {
	if buildID != "" && len(buildID) > 2 {
		return filepath.Join("usr", "lib", "debug", ".build-id", buildID[:2], buildID[2:]+".debug")
	}

	return filepath.Join("usr", "lib", "debug", installedDest+".debug")
}

// Options configures how a binary's debug info is extracted. Three modes,
// matching spec §4.4:
//   - NoStrip: leave debug info embedded, do nothing.
//   - default (neither set): strip in place, no detached .debug file.
//   - Separate: detach debug info to a companion file, then strip.
type Options struct {
	NoStrip  bool
	Separate bool

	// CompressDebugSymbols is "", "zlib", or "zstd"; only meaningful when
	// Separate is set, since there is no detached file to compress otherwise.
	CompressDebugSymbols string
}

// Process implements the three debug-info modes described by Options. It
// returns a non-nil Split only in Separate mode, since that is the only
// mode producing a detached .debug file for a caller to route anywhere.
func Process(path, installedDest string, opts Options) (*Split, error) {
	if !IsELF(path) {
		return nil, nil
	}

	if opts.NoStrip {
		return nil, nil
	}

	if !opts.Separate {
		if err := stripInPlace(path); err != nil {
			return nil, err
		}

		return nil, nil
	}

	buildID, err := BuildID(path)
	if err != nil {
		logger.Logger.Warn("failed to read build-id", logger.Logger.Args("path", path, "error", err))
	}

	debugPath := path + ".debug"

	if err := objcopyExtractDebug(path, debugPath); err != nil {
		return nil, err
	}

	if opts.CompressDebugSymbols != "" {
		if err := compressDebugSections(debugPath, opts.CompressDebugSymbols); err != nil {
			logger.Logger.Warn("failed to compress debug sections",
				logger.Logger.Args("path", debugPath, "algorithm", opts.CompressDebugSymbols, "error", err))
		}
	}

	if err := stripInPlace(path); err != nil {
		return nil, err
	}

	if err := objcopyAddDebugLink(path, debugPath); err != nil {
		logger.Logger.Warn("failed to add debug link", logger.Logger.Args("path", path, "error", err))
	}

	return &Split{
		BinaryPath:    path,
		DebugInfoPath: debugPath,
		BuildIDPath:   DebugInfoPath(buildID, installedDest),
	}, nil
}

// compressDebugSections runs objcopy's section compression on an already
// detached debug-info file (spec §4.4 step 3).
func compressDebugSections(debugPath, algo string) error {
	err := shell.Exec("", "objcopy", "--compress-debug-sections="+algo, debugPath)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrTool, "objcopy --compress-debug-sections failed").
			WithContext("path", debugPath).WithContext("algorithm", algo)
	}

	return nil
}

func objcopyExtractDebug(path, debugPath string) error {
	err := shell.Exec("", "objcopy", "--only-keep-debug", path, debugPath)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrTool, "objcopy --only-keep-debug failed").
			WithContext("path", path).WithOperation("debugsplit.objcopyExtractDebug")
	}

	return nil
}

func stripInPlace(path string) error {
	err := shell.Exec("", "strip", "--strip-unneeded",
		"--remove-section=.comment", "--remove-section=.note", path)
	if err != nil {
		// retry without the fragile --remove-section flags
		err = shell.Exec("", "strip", "--strip-unneeded", path)
	}

	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrTool, "strip --strip-unneeded failed").
			WithContext("path", path).WithOperation("debugsplit.stripInPlace")
	}

	return nil
}

func objcopyAddDebugLink(path, debugPath string) error {
	return shell.Exec("", "objcopy", fmt.Sprintf("--add-gnu-debuglink=%s", debugPath), path)
}

// EnsureWritable makes path writable before stripping, since cargo build
// output is not always mode 0644/0755.
func EnsureWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to stat binary").WithContext("path", path)
	}

	return os.Chmod(path, info.Mode().Perm()|0o200)
}
