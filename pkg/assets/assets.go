// Package assets expands the asset placement rules that decide which files
// end up in a .deb's data archive and where, including the "$auto"
// sentinel; the replace/append/by-dest/by-src merge semantics a variant
// overlay applies live in pkg/config, which operates on rules before they
// are expanded here.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cargo-deb-go/cargo-deb/pkg/config"
	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
)

// AutoSentinel is the asset source value that expands to the crate's default
// binary set plus any README/LICENSE files found at the crate root.
const AutoSentinel = "$auto"

// ResolvedAsset is one file, after glob expansion, ready to be staged.
type ResolvedAsset struct {
	SourcePath string // absolute path on disk
	DestPath   string // path inside the package, relative to /
	Mode       os.FileMode
}

// defaultMode is used for assets with no explicit mode rule.
const defaultMode os.FileMode = 0o644

// Expand resolves every AssetRule's glob against crateRoot, in order,
// producing one ResolvedAsset per matched file. The "$auto" source expands
// to binaries discovered via binaryPaths (target name -> executable path,
// as reported by cargo itself) plus README*/LICENSE* files.
func Expand(crateRoot string, rules []config.AssetRule, binaryPaths map[string]string) ([]ResolvedAsset, error) {
	var resolved []ResolvedAsset

	for _, rule := range rules {
		if rule.Source == AutoSentinel {
			auto, err := expandAuto(crateRoot, binaryPaths, rule.Dest)
			if err != nil {
				return nil, err
			}

			resolved = append(resolved, auto...)

			continue
		}

		matches, err := expandGlob(crateRoot, rule)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, matches...)
	}

	return resolved, nil
}

func expandAuto(crateRoot string, binaryPaths map[string]string, destDir string) ([]ResolvedAsset, error) {
	if destDir == "" {
		destDir = "usr/bin/"
	}

	names := make([]string, 0, len(binaryPaths))
	for name := range binaryPaths {
		names = append(names, name)
	}

	sort.Strings(names)

	var out []ResolvedAsset

	for _, name := range names {
		path := binaryPaths[name]
		if _, err := os.Stat(path); err != nil {
			continue
		}

		out = append(out, ResolvedAsset{
			SourcePath: path,
			DestPath:   joinDest(destDir, name),
			Mode:       0o755,
		})
	}

	for _, pattern := range []string{"README*", "LICENSE*"} {
		matches, err := doublestar.FilepathGlob(filepath.Join(crateRoot, pattern))
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrAsset, "failed to glob auto doc assets")
		}

		for _, m := range matches {
			rel, _ := filepath.Rel(crateRoot, m)
			out = append(out, ResolvedAsset{
				SourcePath: m,
				DestPath:   filepath.Join("usr/share/doc", rel),
				Mode:       defaultMode,
			})
		}
	}

	return out, nil
}

func expandGlob(crateRoot string, rule config.AssetRule) ([]ResolvedAsset, error) {
	pattern := rule.Source
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(crateRoot, pattern)
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrAsset, "invalid asset glob "+rule.Source)
	}

	if len(matches) == 0 {
		return nil, pkgerrors.New(pkgerrors.ErrAsset, "asset glob matched no files: "+rule.Source).
			WithContext("pattern", pattern)
	}

	mode := defaultMode
	if rule.Mode != "" {
		parsed, parseErr := parseMode(rule.Mode)
		if parseErr != nil {
			return nil, parseErr
		}

		mode = parsed
	}

	var out []ResolvedAsset

	for _, m := range matches {
		info, statErr := os.Stat(m)
		if statErr != nil || info.IsDir() {
			continue
		}

		dest := rule.Dest
		if dest == "" || strings.HasSuffix(dest, "/") {
			dest = joinDest(dest, filepath.Base(m))
		}

		out = append(out, ResolvedAsset{SourcePath: m, DestPath: dest, Mode: mode})
	}

	return out, nil
}

func joinDest(dir, name string) string {
	return strings.TrimPrefix(filepath.Join(dir, name), "/")
}

func parseMode(s string) (os.FileMode, error) {
	var mode uint32

	if _, err := fmt.Sscanf(s, "%o", &mode); err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.ErrAsset, "invalid asset mode: "+s)
	}

	return os.FileMode(mode), nil
}

