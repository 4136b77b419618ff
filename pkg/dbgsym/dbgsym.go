// Package dbgsym builds the "-dbgsym_<version>_<arch>.ddeb" sibling package
// that ships the debug info split out of the main package's binaries, mirroring
// how Debian's automatic dbgsym packages are structured: same version, a
// "debug" section, "extra" priority, and a data tree rooted at usr/lib/debug.
package dbgsym

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cargo-deb-go/cargo-deb/pkg/archive"
	"github.com/cargo-deb-go/cargo-deb/pkg/config"
	"github.com/cargo-deb-go/cargo-deb/pkg/control"
	"github.com/cargo-deb-go/cargo-deb/pkg/debugsplit"
	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
)

// Options configures a dbgsym build.
type Options struct {
	OutputDir       string
	Compress        archive.CompressOptions
	SourceDateEpoch int64
}

// Build synthesizes the ddeb file for the splits produced by debugsplit, and
// returns the path it was written to. It returns ("", nil) when splits is
// empty -- a package with no ELF binaries has no debug info to ship.
func Build(desc *config.PackageDescription, splits []*debugsplit.Split, opts Options) (string, error) {
	if len(splits) == 0 {
		return "", nil
	}

	dbgsymName := desc.Name + "-dbgsym"

	entries := make([]archive.Entry, 0, len(splits))

	var installedSize int64

	md5Inputs := make(map[string]string, len(splits))

	for _, s := range splits {
		info, err := os.Stat(s.DebugInfoPath)
		if err != nil {
			return "", pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to stat debug info file").
				WithContext("path", s.DebugInfoPath)
		}

		data, err := os.ReadFile(filepath.Clean(s.DebugInfoPath))
		if err != nil {
			return "", pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to read debug info file").
				WithContext("path", s.DebugInfoPath)
		}

		entries = append(entries, archive.Entry{
			Name:     s.BuildIDPath,
			Mode:     0o644,
			Size:     info.Size(),
			Contents: bytes.NewReader(data),
		})

		installedSize += info.Size()
		md5Inputs[s.BuildIDPath] = s.DebugInfoPath
	}

	controlFields := control.Fields{
		Package:       dbgsymName,
		Version:       desc.FullVersion(),
		Architecture:  desc.Architecture,
		Maintainer:    desc.Maintainer,
		InstalledSize: installedSize,
		Section:       "debug",
		Priority:      "extra",
		Description:   "debug symbols for " + desc.Name,
		Depends:       []string{fmt.Sprintf("%s (= %s)", desc.Name, desc.FullVersion())},
	}

	controlText := control.Render(controlFields)

	md5Text, err := control.MD5Sums(md5Inputs)
	if err != nil {
		return "", err
	}

	controlTarBuf := new(bytes.Buffer)
	if err := archive.BuildTar(controlTarBuf, []archive.Entry{
		{Name: "control", Mode: 0o644, Size: int64(len(controlText)), Contents: bytes.NewReader([]byte(controlText))},
		{Name: "md5sums", Mode: 0o644, Size: int64(len(md5Text)), Contents: bytes.NewReader([]byte(md5Text))},
	}, opts.SourceDateEpoch); err != nil {
		return "", err
	}

	dataTarBuf := new(bytes.Buffer)
	if err := archive.BuildTar(dataTarBuf, entries, opts.SourceDateEpoch); err != nil {
		return "", err
	}

	controlSuffix, controlCompressed, err := archive.Compress(controlTarBuf.Bytes(), opts.Compress)
	if err != nil {
		return "", err
	}

	dataSuffix, dataCompressed, err := archive.Compress(dataTarBuf.Bytes(), opts.Compress)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(opts.OutputDir,
		fmt.Sprintf("%s_%s_%s.ddeb", dbgsymName, desc.FullVersion(), desc.Architecture))

	out, err := os.Create(filepath.Clean(outPath))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to create ddeb file").WithContext("path", outPath)
	}
	defer out.Close()

	err = archive.BuildDeb(out,
		archive.Member{Name: "control.tar" + controlSuffix, Content: controlCompressed},
		archive.Member{Name: "data.tar" + dataSuffix, Content: dataCompressed},
	)
	if err != nil {
		return "", err
	}

	return outPath, nil
}
