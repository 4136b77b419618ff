// Package manifest parses Cargo.toml and workspace manifests, including the
// workspace-inheritance sentinel ("field.workspace = true") Cargo allows for
// several [package] fields.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
)

// CargoTOML is the subset of Cargo.toml this tool reads.
type CargoTOML struct {
	Package   PackageManifest `toml:"package"`
	Workspace *WorkspaceTOML  `toml:"workspace"`
}

// PackageManifest is the [package] table of a crate manifest.
type PackageManifest struct {
	Name          string          `toml:"name"`
	RawVersion    any             `toml:"version"`
	RawLicense    any             `toml:"license"`
	RawDescription any            `toml:"description"`
	RawHomepage   any             `toml:"homepage"`
	RawAuthors    any             `toml:"authors"`
	Metadata      PackageMetadata `toml:"metadata"`
}

// PackageMetadata is the [package.metadata] table; Deb holds this tool's
// own configuration block.
type PackageMetadata struct {
	Deb DebMetadata `toml:"deb"`
}

// DebMetadata is [package.metadata.deb], the packaging configuration a crate
// author embeds directly in their Cargo.toml.
type DebMetadata struct {
	Name         string              `toml:"name"`
	Maintainer   string              `toml:"maintainer"`
	Section      string              `toml:"section"`
	Priority     string              `toml:"priority"`
	Revision     string              `toml:"revision"`
	Depends      StringOrAuto        `toml:"depends"`
	Recommends   []string            `toml:"recommends"`
	Suggests     []string            `toml:"suggests"`
	Conflicts    []string            `toml:"conflicts"`
	Provides     []string            `toml:"provides"`
	Replaces     []string            `toml:"replaces"`
	Breaks       []string            `toml:"breaks"`
	Assets       []AssetRuleTOML     `toml:"assets"`
	ConfFiles    []string            `toml:"conf-files"`
	MaintainerScripts string         `toml:"maintainer-scripts"`
	Triggers     []string            `toml:"triggers-file"`
	Features     []string            `toml:"features"`
	DefaultFeatures *bool            `toml:"default-features"`
	Variants     map[string]Variant  `toml:"variants"`
	Changelog    string              `toml:"changelog"`
	CopyrightFile string             `toml:"copyright-file"`
}

// Variant is a named overlay under [package.metadata.deb.variants.<name>].
// Every field is a pointer/slice so the zero value means "not set". For the
// pointer fields the resolver distinguishes "unset" from "explicitly set to
// empty"; an empty slice field is treated the same as an unset one. A
// literal `assets` list replaces the base list outright; `merge-assets`
// combines with it instead (append first, then by-dest/by-src replacement).
type Variant struct {
	Name        *string         `toml:"name"`
	Section     *string         `toml:"section"`
	Priority    *string         `toml:"priority"`
	Depends     *StringOrAuto   `toml:"depends"`
	Recommends  []string        `toml:"recommends"`
	Assets      []AssetRuleTOML `toml:"assets"`
	MergeAssets *MergeAssets    `toml:"merge-assets"`
}

// MergeAssets holds the three directives a variant can use to combine its
// assets with the base list instead of replacing it outright.
type MergeAssets struct {
	Append []AssetRuleTOML `toml:"append"`
	ByDest []AssetRuleTOML `toml:"by-dest"`
	BySrc  []AssetRuleTOML `toml:"by-src"`
}

// AssetRuleTOML is one entry of the assets array, in the raw TOML shape:
// either a 3-tuple [source, dest, mode] or a table with explicit keys.
type AssetRuleTOML struct {
	Source string `toml:"source"`
	Dest   string `toml:"dest"`
	Mode   string `toml:"mode"`
}

// UnmarshalTOML lets an asset rule be written as the compact array form
// `["src/glob", "dest/", "644"]` in addition to the table form.
func (a *AssetRuleTOML) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case []any:
		if len(v) > 0 {
			a.Source, _ = v[0].(string)
		}

		if len(v) > 1 {
			a.Dest, _ = v[1].(string)
		}

		if len(v) > 2 {
			a.Mode, _ = v[2].(string)
		}

		return nil
	case map[string]any:
		if s, ok := v["source"].(string); ok {
			a.Source = s
		}

		if d, ok := v["dest"].(string); ok {
			a.Dest = d
		}

		if m, ok := v["mode"].(string); ok {
			a.Mode = m
		}

		return nil
	default:
		return pkgerrors.New(pkgerrors.ErrConfig, "asset rule must be an array or table")
	}
}

// StringOrAuto is a dependency list entry that is either a literal
// relationship string or the "$auto" sentinel, kept as a thin wrapper so
// later resolution stays explicit about which case it is handling.
type StringOrAuto []string

// WorkspaceTOML is the [workspace] table of a workspace root manifest.
type WorkspaceTOML struct {
	Members         []string        `toml:"members"`
	ExcludeMembers  []string        `toml:"exclude"`
	PackageDefaults PackageManifest `toml:"package"`
}

// ResolveInherited resolves a Cargo field that may be a literal value or the
// workspace-inheritance sentinel table {workspace = true}, returning the
// literal value, or inherited=true when the field defers to the workspace.
func ResolveInherited(raw any) (value string, inherited bool) {
	switch v := raw.(type) {
	case string:
		return v, false
	case map[string]any:
		if ws, ok := v["workspace"].(bool); ok && ws {
			return "", true
		}

		return "", false
	default:
		return "", false
	}
}

// Parse reads and decodes the Cargo.toml at path.
func Parse(path string) (*CargoTOML, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrConfig, "failed to read Cargo.toml").
			WithContext("path", path)
	}

	var manifest CargoTOML

	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrConfig, "failed to parse Cargo.toml").
			WithContext("path", path)
	}

	return &manifest, nil
}

// FindWorkspaceRoot walks upward from startDir looking for a Cargo.toml that
// declares a [workspace] table, returning its directory. It returns "" with
// no error when startDir's own manifest is not part of a workspace.
func FindWorkspaceRoot(startDir string) (string, error) {
	dir := startDir

	for {
		candidate := filepath.Join(dir, "Cargo.toml")

		if data, err := os.ReadFile(filepath.Clean(candidate)); err == nil {
			var probe struct {
				Workspace *WorkspaceTOML `toml:"workspace"`
			}

			if err := toml.Unmarshal(data, &probe); err == nil && probe.Workspace != nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}
