// Package control renders a Debian control file and the other DEBIAN/
// control-member files (conffiles, maintainer scripts, md5sums) in the
// canonical field order and formatting dpkg-deb itself produces.
package control

import (
	"crypto/md5" //nolint:gosec // md5sums is dpkg's fixed on-disk format, not a security control
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
)

// removeHeader is prepended to prerm/postrm scripts so they no-op on
// upgrade, matching the guard the rest of this ecosystem's deb builders use.
const removeHeader = "if [ \"$1\" = \"remove\" ]; then\n"

// Fields holds everything needed to render the control file's content,
// already resolved and formatted (relationship strings, not raw specs).
type Fields struct {
	Package       string
	Version       string
	Architecture  string
	Maintainer    string
	InstalledSize int64 // bytes; rendered in KiB, rounded up
	Section       string
	Priority      string
	Homepage      string
	Description   string
	Depends       []string
	Recommends    []string
	Suggests      []string
	Conflicts     []string
	Provides      []string
	Replaces      []string
	Breaks        []string
}

// Render produces the contents of the DEBIAN/control file, in the field
// order dpkg-deb expects: mandatory identity fields, Installed-Size,
// relationship fields, then Section/Priority/Homepage, and finally the
// (possibly multi-line) Description last.
func Render(f Fields) string {
	var b strings.Builder

	writeField := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", name, value)
		}
	}

	writeRel := func(name string, items []string) {
		if len(items) > 0 {
			writeField(name, strings.Join(items, ", "))
		}
	}

	writeField("Package", f.Package)
	writeField("Version", f.Version)
	writeField("Architecture", f.Architecture)
	writeField("Maintainer", f.Maintainer)
	writeField("Installed-Size", fmt.Sprintf("%d", kibibytes(f.InstalledSize)))

	writeRel("Depends", f.Depends)
	writeRel("Recommends", f.Recommends)
	writeRel("Suggests", f.Suggests)
	writeRel("Conflicts", f.Conflicts)
	writeRel("Provides", f.Provides)
	writeRel("Replaces", f.Replaces)
	writeRel("Breaks", f.Breaks)

	writeField("Section", f.Section)
	writeField("Priority", f.Priority)
	writeField("Homepage", f.Homepage)

	writeDescription(&b, f.Description)

	return b.String()
}

func writeDescription(b *strings.Builder, description string) {
	if description == "" {
		return
	}

	lines := strings.Split(description, "\n")
	fmt.Fprintf(b, "Description: %s\n", lines[0])

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			b.WriteString(" .\n")
		} else {
			fmt.Fprintf(b, " %s\n", line)
		}
	}
}

// kibibytes rounds a byte count up to the nearest whole kibibyte, the unit
// dpkg's Installed-Size field is specified in.
func kibibytes(bytes int64) int64 {
	return (bytes + 1023) / 1024
}

// Triggers renders the DEBIAN/triggers member verbatim: dpkg's triggers
// directive syntax is passed through unmodified from the crate's
// triggers-file.
func Triggers(directives []string) string {
	var b strings.Builder

	for _, d := range directives {
		b.WriteString(d)
		b.WriteByte('\n')
	}

	return b.String()
}

// ConfFiles renders the DEBIAN/conffiles member, one absolute path per line.
func ConfFiles(paths []string) string {
	var b strings.Builder

	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	return b.String()
}

// Scripts is the set of maintainer scriptlets a package may carry.
type Scripts struct {
	PreInst  string
	PostInst string
	PreRm    string
	PostRm   string
}

// Render returns the non-empty scripts as a name->content map, with the
// upgrade-guard header prepended to prerm/postrm.
func (s Scripts) Render() map[string]string {
	out := make(map[string]string)

	add := func(name, content string, guardOnRemove bool) {
		if content == "" {
			return
		}

		if guardOnRemove {
			if !strings.HasSuffix(content, "\n") {
				content += "\n"
			}

			content = removeHeader + content + "fi\n"
		}

		out[name] = content
	}

	add("preinst", s.PreInst, false)
	add("postinst", s.PostInst, false)
	add("prerm", s.PreRm, true)
	add("postrm", s.PostRm, true)

	return out
}

// WriteScripts writes each rendered scriptlet into dir with mode 0755.
func WriteScripts(dir string, scripts Scripts) error {
	for name, content := range scripts.Render() {
		path := filepath.Join(dir, name)

		if err := os.WriteFile(path, []byte(content), 0o755); err != nil { //nolint:gosec // scriptlets must be executable
			return pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to write maintainer script").
				WithContext("path", path)
		}
	}

	return nil
}

// MD5Sums computes the md5sums control member: one "<hex digest>  <relative
// path>" line per file, sorted by path. paths maps package-root-relative
// destination paths to their absolute location on disk.
func MD5Sums(paths map[string]string) (string, error) {
	relPaths := make([]string, 0, len(paths))
	for rel := range paths {
		relPaths = append(relPaths, rel)
	}

	sort.Strings(relPaths)

	var b strings.Builder

	for _, rel := range relPaths {
		sum, err := md5File(paths[rel])
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "%s  %s\n", sum, strings.TrimPrefix(rel, "/"))
	}

	return b.String(), nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to open file for md5sum").
			WithContext("path", path)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // dpkg's fixed md5sums format
	if _, err := io.Copy(h, f); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to hash file").WithContext("path", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
