// Package config resolves the manifest, workspace defaults, a selected
// variant overlay, and CLI overrides into a single immutable
// PackageDescription, the way the teacher's PKGBUILD directive resolver
// folds base, distro-qualified, and arch-qualified fields into one set of
// computed values.
package config

// AssetRule is a single resolved asset placement rule.
type AssetRule struct {
	Source string // glob relative to the crate root
	Dest   string // destination path inside the package, relative to /
	Mode   string // octal file mode string, e.g. "755"; "" means the default 0644
}

// PackageDescription is the fully resolved, validated configuration for one
// .deb build: the result of layering workspace defaults, package metadata,
// an optional named variant, and CLI overrides.
type PackageDescription struct {
	Name         string `validate:"required,min=2"`
	Version      string `validate:"required"`
	Revision     string
	Architecture string `validate:"required"`
	Maintainer   string
	Section      string
	Priority     string `validate:"omitempty,oneof=required important standard optional extra"`
	Homepage     string `validate:"omitempty,url"`
	Description  string `validate:"required"`
	License      string

	Depends    []string
	Recommends []string
	Suggests   []string
	Conflicts  []string
	Provides   []string
	Replaces   []string
	Breaks     []string

	Assets    []AssetRule
	ConfFiles []string

	PreInst  string
	PostInst string
	PreRm    string
	PostRm   string

	TriggersFiles        []string
	MaintainerScriptsDir string

	Changelog     string
	CopyrightFile string

	// Debug options (spec.md §3 "Debug options"); CLI-driven, see BuildOptions.
	SeparateDebugSymbols bool
	CompressDebugSymbols string // "", "zlib", or "zstd"
	Dbgsym               bool

	Variant string
}

// BuildOptions carries the CLI-level knobs that are not part of the package
// metadata itself: how to invoke cargo, where to read the manifest from, and
// how to compress the resulting archive.
type BuildOptions struct {
	ManifestPath string
	Variant      string
	Target       string
	Profile      string
	OutputDir    string
	NoStrip      bool

	Maintainer string // overrides both metadata and the authors fallback

	DebVersion string
	// DebRevision is applied only when DebRevisionSet is true, so that
	// "--deb-revision \"\"" (erase the revision) is distinguishable from
	// the flag being absent (revision defaults to "1").
	DebRevision    string
	DebRevisionSet bool

	SeparateDebugSymbols bool
	Dbgsym               bool
	CompressDebugSymbols string // "", "zlib", or "zstd"

	CompressType    string // "gzip" (default) or "xz"
	CompressSystem  bool   // shell out to system gzip/xz instead of the linked libraries
	Rsyncable       bool
	SourceDateEpoch int64 // unix seconds; 0 means "use source mtime"
}
