// Package archive assembles the three members of a .deb file: the
// debian-binary version stamp and the control.tar/data.tar pair, compressed
// and wrapped in an outer ar(1) archive, grounded on the ar/tar pipeline
// etnz-apt-repo-builder's deb.Package.WriteTo uses, generalized to support
// both gzip and xz member compression and deterministic, SOURCE_DATE_EPOCH
// driven headers.
package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/shell"
)

// Compression selects the algorithm used for control.tar/data.tar members.
type Compression string

const (
	CompressGzip Compression = "gzip"
	CompressXz   Compression = "xz"
)

// Entry is one file or directory destined for a tar member.
type Entry struct {
	Name     string // archive-relative path, without leading "./"
	Mode     int64
	Size     int64
	IsDir    bool
	Link     string // symlink target, when set
	Contents io.Reader
	ModTime  time.Time
}

// BuildTar writes entries into a deterministic tar stream: sorted by name,
// uid/gid forced to 0, and every entry stamped with the same mtime,
// sourceDateEpoch (unix seconds); Entry.ModTime is not consulted.
func BuildTar(w io.Writer, entries []Entry, sourceDateEpoch int64) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	tw := tar.NewWriter(w)
	defer tw.Close()

	mtime := time.Unix(sourceDateEpoch, 0).UTC()

	for _, e := range sorted {
		name := "./" + filepath.ToSlash(e.Name)

		hdr := &tar.Header{
			Name:     name,
			Mode:     e.Mode,
			Size:     e.Size,
			ModTime:  mtime,
			Uid:      0,
			Gid:      0,
			Uname:    "",
			Gname:    "",
			Format:   tar.FormatGNU,
			Typeflag: tar.TypeReg,
		}

		if e.IsDir {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
			if !strEndsWithSlash(name) {
				hdr.Name += "/"
			}
		}

		if e.Link != "" {
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			hdr.Size = 0
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write tar header").WithContext("entry", e.Name)
		}

		if hdr.Typeflag == tar.TypeReg && e.Contents != nil {
			if _, err := io.Copy(tw, e.Contents); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write tar entry body").WithContext("entry", e.Name)
			}
		}
	}

	return nil
}

func strEndsWithSlash(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '/'
}

// CompressOptions configures member compression.
type CompressOptions struct {
	Type       Compression
	System     bool // shell out to the system gzip/xz binary instead of the Go library
	Rsyncable  bool // pass --rsyncable to the system gzip binary
	WorkingDir string
}

// Compress compresses raw with the selected algorithm, returning the member
// filename suffix (".gz" or ".xz") alongside the compressed bytes.
func Compress(raw []byte, opts CompressOptions) (suffix string, compressed []byte, err error) {
	if opts.System {
		return compressWithSystemTool(raw, opts)
	}

	var buf bytes.Buffer

	switch opts.Type {
	case CompressXz:
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to create xz writer")
		}

		if _, err := xw.Write(raw); err != nil {
			return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to write xz stream")
		}

		if err := xw.Close(); err != nil {
			return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to close xz stream")
		}

		return ".xz", buf.Bytes(), nil
	default:
		gw, _ := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		gw.ModTime = time.Time{}

		if _, err := gw.Write(raw); err != nil {
			return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to write gzip stream")
		}

		if err := gw.Close(); err != nil {
			return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrTool, "failed to close gzip stream")
		}

		return ".gz", buf.Bytes(), nil
	}
}

func compressWithSystemTool(raw []byte, opts CompressOptions) (string, []byte, error) {
	tool := "gzip"
	suffix := ".gz"
	args := []string{"-9", "-c"}

	if opts.Type == CompressXz {
		tool = "xz"
		suffix = ".xz"
		args = []string{"-9", "-c"}
	} else if opts.Rsyncable {
		args = append(args, "--rsyncable")
	}

	if !shell.LookPath(tool) {
		return "", nil, pkgerrors.New(pkgerrors.ErrTool, "system compressor not found on PATH").WithContext("tool", tool)
	}

	tmpIn, err := os.CreateTemp("", "cargo-deb-compress-in-*")
	if err != nil {
		return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to create temp file")
	}
	defer os.Remove(tmpIn.Name())

	if _, err := tmpIn.Write(raw); err != nil {
		tmpIn.Close()
		return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write temp file")
	}
	tmpIn.Close()

	args = append(args, tmpIn.Name())

	out, err := shell.Output(context.Background(), opts.WorkingDir, tool, args...)
	if err != nil {
		return "", nil, pkgerrors.Wrap(err, pkgerrors.ErrTool, "system compressor failed").WithContext("tool", tool)
	}

	return suffix, out, nil
}

// Member is one named blob destined for the outer ar(1) archive.
type Member struct {
	Name    string
	Content []byte
}

// BuildDeb assembles the outer ar archive: debian-binary first, then
// control.tar.<suffix>, then data.tar.<suffix>, per deb(5).
func BuildDeb(w io.Writer, controlTar, dataTar Member) error {
	arW := ar.NewWriter(w)

	if err := arW.WriteGlobalHeader(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write ar global header")
	}

	members := []Member{
		{Name: "debian-binary", Content: []byte("2.0\n")},
		controlTar,
		dataTar,
	}

	for _, m := range members {
		if err := writeMember(arW, m); err != nil {
			return err
		}
	}

	return nil
}

func writeMember(w *ar.Writer, m Member) error {
	hdr := &ar.Header{
		Name:    m.Name,
		Size:    int64(len(m.Content)),
		Mode:    0o644,
		ModTime: time.Unix(0, 0),
	}

	if err := w.WriteHeader(hdr); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write ar member header").WithContext("member", m.Name)
	}

	if _, err := w.Write(m.Content); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write ar member body").WithContext("member", m.Name)
	}

	return nil
}
