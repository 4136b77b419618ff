// Package pipeline wires every build stage - manifest parsing, config
// resolution, cargo build, asset staging, debug-info splitting, dependency
// resolution, control synthesis and archive assembly - into the single
// BuildPackage driver, the way the teacher's pkg/builder.Builder.Build
// sequences a PKGBUILD-driven package build end to end.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cargo-deb-go/cargo-deb/pkg/archive"
	"github.com/cargo-deb-go/cargo-deb/pkg/archmap"
	"github.com/cargo-deb-go/cargo-deb/pkg/assets"
	"github.com/cargo-deb-go/cargo-deb/pkg/cargobuild"
	"github.com/cargo-deb-go/cargo-deb/pkg/config"
	"github.com/cargo-deb-go/cargo-deb/pkg/control"
	"github.com/cargo-deb-go/cargo-deb/pkg/dbgsym"
	"github.com/cargo-deb-go/cargo-deb/pkg/debugsplit"
	"github.com/cargo-deb-go/cargo-deb/pkg/depends"
	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
	"github.com/cargo-deb-go/cargo-deb/pkg/manifest"
	"github.com/cargo-deb-go/cargo-deb/pkg/worker"

	"github.com/otiai10/copy"
)

// Result reports the artifacts a build produced.
type Result struct {
	DebPath  string
	DdebPath string // "" unless --dbgsym is set and at least one ELF binary was split
	Package  *config.PackageDescription
}

const maxWorkers = 8

// BuildPackage runs the complete pipeline for one crate manifest and returns
// the paths of the .deb (and, when applicable, the debug-info .ddeb) it
// produced.
func BuildPackage(ctx context.Context, opts config.BuildOptions) (*Result, error) {
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}

	crateRoot, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrConfig, "failed to resolve crate root")
	}

	cargoToml, err := manifest.Parse(manifestPath)
	if err != nil {
		return nil, err
	}

	var workspaceDefaults *manifest.PackageManifest

	wsRoot, err := manifest.FindWorkspaceRoot(crateRoot)
	if err != nil {
		return nil, err
	}

	if wsRoot != "" {
		wsToml, err := manifest.Parse(filepath.Join(wsRoot, "Cargo.toml"))
		if err != nil {
			return nil, err
		}

		if wsToml.Workspace != nil {
			workspaceDefaults = &wsToml.Workspace.PackageDefaults
		}
	}

	desc, err := config.Resolve(cargoToml, workspaceDefaults, opts)
	if err != nil {
		return nil, err
	}

	sourceDateEpoch := opts.SourceDateEpoch
	if sourceDateEpoch == 0 {
		if info, statErr := os.Stat(manifestPath); statErr == nil {
			sourceDateEpoch = info.ModTime().Unix()
		}
	}

	debianArch, err := resolveArchitecture(opts.Target)
	if err != nil {
		return nil, err
	}

	desc.Architecture = debianArch

	if err := config.Validate(desc); err != nil {
		return nil, err
	}

	logger.Logger.Step("📦", fmt.Sprintf("building %s %s (%s)", desc.Name, desc.FullVersion(), desc.Architecture))

	artifacts, err := cargobuild.Build(ctx, cargobuild.Options{
		ManifestDir: crateRoot,
		Profile:     opts.Profile,
		Target:      opts.Target,
	})
	if err != nil {
		return nil, err
	}

	binaryPathMap := cargobuild.BinaryPaths(artifacts)

	resolvedAssets, err := assets.Expand(crateRoot, desc.Assets, binaryPathMap)
	if err != nil {
		return nil, err
	}

	desc.ConfFiles = depends.DeriveConfFiles(desc.ConfFiles, assetDestsUnderEtc(resolvedAssets))

	stagingDir, err := os.MkdirTemp("", "cargo-deb-staging-*")
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to create staging directory")
	}
	defer os.RemoveAll(stagingDir)

	resolvedAssets, err = stageAssets(stagingDir, resolvedAssets)
	if err != nil {
		return nil, err
	}

	splits, binaryPaths, err := splitDebugInfo(resolvedAssets, debugsplit.Options{
		NoStrip:              opts.NoStrip,
		Separate:             opts.SeparateDebugSymbols,
		CompressDebugSymbols: opts.CompressDebugSymbols,
	})
	if err != nil {
		return nil, err
	}

	if desc.Dbgsym {
		// route detached debug info to the -dbgsym.ddeb sibling
	} else if len(splits) > 0 {
		// no sibling package requested: the detached debug info becomes an
		// asset of the main package instead, at its usr/lib/debug/... path.
		for _, s := range splits {
			resolvedAssets = append(resolvedAssets, assets.ResolvedAsset{
				SourcePath: s.DebugInfoPath,
				DestPath:   s.BuildIDPath,
				Mode:       0o644,
			})
		}

		splits = nil
	}

	resolvedDepends, err := depends.ResolveAuto(ctx, desc.Depends, binaryPaths, stagingDir)
	if err != nil {
		return nil, err
	}

	desc.Depends = depends.FormatForDeb(resolvedDepends)
	desc.Recommends = depends.FormatForDeb(desc.Recommends)
	desc.ConfFiles = depends.NormalizeConfFiles(desc.ConfFiles)

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(crateRoot, "target", "debian")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to create output directory").WithContext("dir", outputDir)
	}

	loadMaintainerScripts(desc, crateRoot)

	compress := archive.CompressOptions{
		Type:       archive.Compression(defaultString(opts.CompressType, "gzip")),
		System:     opts.CompressSystem,
		Rsyncable:  opts.Rsyncable,
		WorkingDir: crateRoot,
	}

	debPath, err := buildDeb(desc, resolvedAssets, outputDir, compress, sourceDateEpoch)
	if err != nil {
		return nil, err
	}

	ddebPath, err := dbgsym.Build(desc, splits, dbgsym.Options{
		OutputDir:       outputDir,
		Compress:        compress,
		SourceDateEpoch: sourceDateEpoch,
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("package built", logger.Logger.Args("path", debPath))

	return &Result{DebPath: debPath, DdebPath: ddebPath, Package: desc}, nil
}

// stageAssets copies every resolved asset into stagingDir, keyed by its
// destination path, so later steps (debug-info splitting in particular)
// mutate a disposable copy instead of the crate's actual build artifacts.
func stageAssets(stagingDir string, resolved []assets.ResolvedAsset) ([]assets.ResolvedAsset, error) {
	staged := make([]assets.ResolvedAsset, len(resolved))

	for i, asset := range resolved {
		dest := filepath.Join(stagingDir, asset.DestPath)

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to create staging subdirectory").
				WithContext("path", dest)
		}

		if err := copy.Copy(asset.SourcePath, dest); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to stage asset").
				WithContext("source", asset.SourcePath).WithContext("dest", dest)
		}

		staged[i] = assets.ResolvedAsset{SourcePath: dest, DestPath: asset.DestPath, Mode: asset.Mode}
	}

	return staged, nil
}

func resolveArchitecture(target string) (string, error) {
	if target != "" {
		return archmap.FromTargetTriple(target)
	}

	return archmap.HostDebianArch()
}

// splitDebugInfo processes every ELF asset per opts (stripping it in place
// unless opts.NoStrip is set, additionally detaching a .debug file first
// when opts.Separate is set)
// and returns the resulting splits alongside every ELF binary path staged,
// the latter driving $auto-depends resolution regardless of debug mode.
// Independent per-binary work runs through the bounded pool.
func splitDebugInfo(resolved []assets.ResolvedAsset, opts debugsplit.Options) ([]*debugsplit.Split, []string, error) {
	type result struct {
		split *debugsplit.Split
		path  string
		isELF bool
	}

	results := make([]result, len(resolved))
	tasks := make([]worker.Task, 0, len(resolved))

	for i, asset := range resolved {
		i, asset := i, asset

		tasks = append(tasks, func() error {
			if !debugsplit.IsELF(asset.SourcePath) {
				return nil
			}

			if err := debugsplit.EnsureWritable(asset.SourcePath); err != nil {
				return err
			}

			split, err := debugsplit.Process(asset.SourcePath, asset.DestPath, opts)
			if err != nil {
				return err
			}

			results[i] = result{split: split, path: asset.SourcePath, isELF: true}

			return nil
		})
	}

	if err := worker.Run(tasks, maxWorkers); err != nil {
		return nil, nil, err
	}

	var splits []*debugsplit.Split

	var binaryPaths []string

	for _, r := range results {
		if !r.isELF {
			continue
		}

		binaryPaths = append(binaryPaths, r.path)

		if r.split != nil {
			splits = append(splits, r.split)
		}
	}

	return splits, binaryPaths, nil
}

// assetDestsUnderEtc returns every resolved asset's destination path that
// begins "etc/", implicitly treated as a conffile.
func assetDestsUnderEtc(resolved []assets.ResolvedAsset) []string {
	var out []string

	for _, a := range resolved {
		if strings.HasPrefix(a.DestPath, "etc/") {
			out = append(out, a.DestPath)
		}
	}

	return out
}

func loadMaintainerScripts(desc *config.PackageDescription, crateRoot string) {
	if desc.MaintainerScriptsDir == "" {
		return
	}

	dir := filepath.Join(crateRoot, desc.MaintainerScriptsDir)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // name is one of a fixed set below
		if err != nil {
			return ""
		}

		return string(data)
	}

	desc.PreInst = read("preinst")
	desc.PostInst = read("postinst")
	desc.PreRm = read("prerm")
	desc.PostRm = read("postrm")
}

func buildDeb(desc *config.PackageDescription, resolved []assets.ResolvedAsset, outputDir string, compress archive.CompressOptions, sourceDateEpoch int64) (string, error) {
	dataEntries, dirEntries, installedSize, md5Inputs, err := stageDataEntries(resolved)
	if err != nil {
		return "", err
	}

	dataEntries = append(dataEntries, dirEntries...)

	controlFields := control.Fields{
		Package:       desc.Name,
		Version:       desc.FullVersion(),
		Architecture:  desc.Architecture,
		Maintainer:    desc.Maintainer,
		InstalledSize: installedSize,
		Section:       desc.Section,
		Priority:      desc.Priority,
		Homepage:      desc.Homepage,
		Description:   desc.Description,
		Depends:       desc.Depends,
		Recommends:    desc.Recommends,
		Suggests:      desc.Suggests,
		Conflicts:     desc.Conflicts,
		Provides:      desc.Provides,
		Replaces:      desc.Replaces,
		Breaks:        desc.Breaks,
	}

	controlText := control.Render(controlFields)

	md5Text, err := control.MD5Sums(md5Inputs)
	if err != nil {
		return "", err
	}

	controlEntries := []archive.Entry{
		entryFromBytes("control", []byte(controlText)),
		entryFromBytes("md5sums", []byte(md5Text)),
	}

	if len(desc.ConfFiles) > 0 {
		controlEntries = append(controlEntries, entryFromBytes("conffiles", []byte(control.ConfFiles(desc.ConfFiles))))
	}

	if triggers := loadTriggers(desc); triggers != "" {
		controlEntries = append(controlEntries, entryFromBytes("triggers", []byte(triggers)))
	}

	scripts := control.Scripts{PreInst: desc.PreInst, PostInst: desc.PostInst, PreRm: desc.PreRm, PostRm: desc.PostRm}
	for name, content := range scripts.Render() {
		controlEntries = append(controlEntries, archive.Entry{
			Name: name, Mode: 0o755, Size: int64(len(content)), Contents: bytes.NewReader([]byte(content)),
		})
	}

	controlTarBuf := new(bytes.Buffer)
	if err := archive.BuildTar(controlTarBuf, controlEntries, sourceDateEpoch); err != nil {
		return "", err
	}

	dataTarBuf := new(bytes.Buffer)
	if err := archive.BuildTar(dataTarBuf, dataEntries, sourceDateEpoch); err != nil {
		return "", err
	}

	controlSuffix, controlCompressed, err := archive.Compress(controlTarBuf.Bytes(), compress)
	if err != nil {
		return "", err
	}

	dataSuffix, dataCompressed, err := archive.Compress(dataTarBuf.Bytes(), compress)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s.deb", desc.Name, desc.FullVersion(), desc.Architecture))

	out, err := os.Create(filepath.Clean(outPath))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrIO, "failed to create deb file").WithContext("path", outPath)
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

func entryFromBytes(name string, content []byte) archive.Entry {
	return archive.Entry{Name: name, Mode: 0o644, Size: int64(len(content)), Contents: bytes.NewReader(content)}
}

// stageDataEntries reads every resolved asset's content (concurrently, via
// the bounded pool) to compute its size, records each asset's on-disk path
// for the later md5sums pass, and synthesizes the directory entries needed
// for the parent paths those assets live under.
func stageDataEntries(resolved []assets.ResolvedAsset) (files []archive.Entry, dirs []archive.Entry, installedSize int64, md5Inputs map[string]string, err error) {
	type fileResult struct {
		entry archive.Entry
		size  int64
	}

	fileResults := make([]fileResult, len(resolved))
	tasks := make([]worker.Task, 0, len(resolved))

	for i, asset := range resolved {
		i, asset := i, asset

		tasks = append(tasks, func() error {
			info, statErr := os.Stat(asset.SourcePath)
			if statErr != nil {
				return pkgerrors.Wrap(statErr, pkgerrors.ErrAsset, "failed to stat asset").WithContext("path", asset.SourcePath)
			}

			data, readErr := os.ReadFile(filepath.Clean(asset.SourcePath))
			if readErr != nil {
				return pkgerrors.Wrap(readErr, pkgerrors.ErrAsset, "failed to read asset").WithContext("path", asset.SourcePath)
			}

			fileResults[i] = fileResult{
				entry: archive.Entry{
					Name:     asset.DestPath,
					Mode:     int64(asset.Mode),
					Size:     info.Size(),
					Contents: bytes.NewReader(data),
				},
				size: info.Size(),
			}

			return nil
		})
	}

	if err := worker.Run(tasks, maxWorkers); err != nil {
		return nil, nil, 0, nil, err
	}

	md5Inputs = make(map[string]string, len(resolved))
	dirSet := make(map[string]bool)

	for i, fr := range fileResults {
		files = append(files, fr.entry)
		installedSize += fr.size
		md5Inputs[resolved[i].DestPath] = resolved[i].SourcePath

		dir := filepath.Dir(resolved[i].DestPath)
		for dir != "." && dir != "/" && dir != "" {
			dirSet[dir] = true
			dir = filepath.Dir(dir)
		}
	}

	dirNames := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirNames = append(dirNames, d)
	}

	sort.Strings(dirNames)

	for _, d := range dirNames {
		dirs = append(dirs, archive.Entry{Name: d, Mode: 0o755, IsDir: true})
	}

	return files, dirs, installedSize, md5Inputs, nil
}

func loadTriggers(desc *config.PackageDescription) string {
	var b bytes.Buffer

	for _, path := range desc.TriggersFiles {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			continue
		}

		b.Write(data)

		if len(data) > 0 && data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
