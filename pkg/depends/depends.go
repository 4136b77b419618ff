// Package depends formats Debian relationship fields and resolves the
// "$auto" sentinel into concrete library dependencies, either by shelling
// out to dpkg-shlibdeps or, when that tool is unavailable, by scanning each
// staged ELF binary's DT_NEEDED entries against a SONAME-to-package table.
package depends

import (
	"context"
	"debug/elf"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
	"github.com/cargo-deb-go/cargo-deb/pkg/shell"
)

// AutoSentinel is the depends entry that expands to the shared library
// dependencies cargo-deb discovers on the staged binaries.
const AutoSentinel = "$auto"

var operatorPattern = regexp.MustCompile(`(?m)(<=|>=|<|=|>)`)

// FormatForDeb converts "package>=1.0" style shorthand into the Debian
// control-file relationship syntax "package (>= 1.0)". Entries with no
// version operator, or already well formed, pass through unchanged.
func FormatForDeb(depends []string) []string {
	processed := make([]string, len(depends))
	for i, dep := range depends {
		processed[i] = formatSingle(dep)
	}

	return processed
}

func formatSingle(dep string) string {
	if strings.Contains(dep, "(") {
		return dep
	}

	parts := operatorPattern.Split(dep, -1)
	if len(parts) != 2 {
		return dep
	}

	name := strings.TrimSpace(parts[0])
	version := strings.TrimSpace(parts[1])
	operator := strings.TrimSpace(strings.TrimPrefix(strings.TrimSuffix(dep, version), name))

	return name + " (" + operator + " " + version + ")"
}

// DeriveConfFiles unions the explicit conf-files list with every resolved
// asset destination under etc/ (spec §3 invariant / §4.2 derivation rule:
// "any asset whose destination begins etc/ is implicitly a conffile"),
// deduplicated and sorted for deterministic control-file output.
func DeriveConfFiles(explicit, assetDestsUnderEtc []string) []string {
	seen := make(map[string]bool, len(explicit)+len(assetDestsUnderEtc))

	out := make([]string, 0, len(explicit)+len(assetDestsUnderEtc))

	for _, p := range explicit {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range assetDestsUnderEtc {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	sort.Strings(out)

	return out
}

// NormalizeConfFiles ensures every conffiles entry has a leading slash, the
// form dpkg requires in the conffiles control member.
func NormalizeConfFiles(paths []string) []string {
	normalized := make([]string, len(paths))
	for i, p := range paths {
		if !strings.HasPrefix(p, "/") {
			normalized[i] = "/" + p
		} else {
			normalized[i] = p
		}
	}

	return normalized
}

// sonameToPackage is a minimal, well-known mapping from shared library
// SONAMEs to the Debian packages that provide them, used as the ELF-scan
// fallback when dpkg-shlibdeps is not on PATH.
var sonameToPackage = map[string]string{
	"libc.so.6":        "libc6",
	"libm.so.6":        "libc6",
	"libpthread.so.0":  "libc6",
	"libdl.so.2":       "libc6",
	"librt.so.1":       "libc6",
	"libgcc_s.so.1":    "libgcc-s1",
	"libssl.so.3":      "libssl3",
	"libcrypto.so.3":   "libssl3",
	"libsqlite3.so.0":  "libsqlite3-0",
	"libz.so.1":        "zlib1g",
	"libzstd.so.1":     "libzstd1",
	"liblzma.so.5":     "liblzma5",
	"libstdc++.so.6":   "libstdc++6",
}

// ResolveAuto expands the "$auto" entries of depends into concrete
// relationship strings, preferring dpkg-shlibdeps when present and falling
// back to a DT_NEEDED/SONAME scan of binaryPaths.
func ResolveAuto(ctx context.Context, depends []string, binaryPaths []string, stagingDir string) ([]string, error) {
	hasAuto := false

	resolved := make([]string, 0, len(depends))

	for _, dep := range depends {
		if dep == AutoSentinel {
			hasAuto = true
			continue
		}

		resolved = append(resolved, dep)
	}

	if !hasAuto {
		return resolved, nil
	}

	var autoDeps []string

	var err error

	if shell.LookPath("dpkg-shlibdeps") {
		autoDeps, err = resolveWithDpkgShlibdeps(ctx, binaryPaths, stagingDir)
	} else {
		autoDeps, err = resolveWithELFScan(binaryPaths)
	}

	if err != nil {
		return nil, err
	}

	resolved = append(resolved, autoDeps...)
	sort.Strings(resolved)

	return dedupe(resolved), nil
}

func resolveWithDpkgShlibdeps(ctx context.Context, binaryPaths []string, stagingDir string) ([]string, error) {
	args := append([]string{"-O"}, binaryPaths...)

	out, err := shell.Output(ctx, stagingDir, "dpkg-shlibdeps", args...)
	if err != nil {
		logger.Logger.Warn("dpkg-shlibdeps failed, falling back to ELF scan",
			logger.Logger.Args("error", err))

		return resolveWithELFScan(binaryPaths)
	}

	const prefix = "shlibs:Depends="

	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, prefix) {
			value := strings.TrimPrefix(line, prefix)
			return splitRelationList(value), nil
		}
	}

	return nil, nil
}

func resolveWithELFScan(binaryPaths []string) ([]string, error) {
	packages := make(map[string]bool)

	for _, path := range binaryPaths {
		sonames, err := neededSonames(path)
		if err != nil {
			return nil, err
		}

		for _, soname := range sonames {
			if pkg, ok := sonameToPackage[soname]; ok {
				packages[pkg] = true
			}
		}
	}

	deps := make([]string, 0, len(packages))
	for pkg := range packages {
		deps = append(deps, pkg)
	}

	sort.Strings(deps)

	return deps, nil
}

func neededSonames(path string) ([]string, error) {
	f, err := elf.Open(filepath.Clean(path))
	if err != nil {
		// not an ELF binary (e.g. a shell script asset); nothing to resolve.
		if os.IsNotExist(err) {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "binary not found").WithContext("path", path)
		}

		return nil, nil
	}
	defer f.Close()

	return f.DynString(elf.DT_NEEDED)
}

func splitRelationList(value string) []string {
	var out []string

	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))

	out := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}

	return out
}
