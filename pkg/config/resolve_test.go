package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargo-deb-go/cargo-deb/pkg/manifest"
)

func sampleCargoToml() *manifest.CargoTOML {
	section := "misc"

	return &manifest.CargoTOML{
		Package: manifest.PackageManifest{
			Name:           "hello-cli",
			RawVersion:     "1.2.3",
			RawLicense:     "MIT",
			RawDescription: "a tiny cli",
			Metadata: manifest.PackageMetadata{
				Deb: manifest.DebMetadata{
					Maintainer: "Jane Dev <jane@example.com>",
					Depends:    manifest.StringOrAuto{"$auto"},
					Assets: []manifest.AssetRuleTOML{
						{Source: "target/release/hello-cli", Dest: "usr/bin/", Mode: "755"},
					},
					Variants: map[string]manifest.Variant{
						"minimal": {Section: &section},
					},
				},
			},
		},
	}
}

func TestResolve_Basic(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, "hello-cli", desc.Name)
	assert.Equal(t, "1.2.3", desc.Version)
	assert.Equal(t, "utils", desc.Section)
	assert.Equal(t, "optional", desc.Priority)
	assert.Equal(t, []string{"$auto"}, desc.Depends)
	require.Len(t, desc.Assets, 1)
}

func TestResolve_Variant(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{Variant: "minimal"})
	require.NoError(t, err)
	assert.Equal(t, "misc", desc.Section)
	assert.Equal(t, "minimal", desc.Variant)
}

func TestResolve_UnknownVariant(t *testing.T) {
	t.Parallel()

	_, err := Resolve(sampleCargoToml(), nil, BuildOptions{Variant: "nonexistent"})
	require.Error(t, err)
}

func TestResolve_CLIVersionOverride(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{DebVersion: "9.9.9", DebRevision: "2", DebRevisionSet: true})
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", desc.Version)
	assert.Equal(t, "9.9.9-2", desc.FullVersion())
}

func TestResolve_WorkspaceInheritedVersion(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.RawVersion = map[string]any{"workspace": true}

	_, err := Resolve(cargoToml, nil, BuildOptions{})
	require.Error(t, err)

	workspace := &manifest.PackageManifest{RawVersion: "3.0.0"}

	desc, err := Resolve(cargoToml, workspace, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", desc.Version)
}

func TestResolve_InvalidLicense(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.RawLicense = "Not-A-Real-License"

	_, err := Resolve(cargoToml, nil, BuildOptions{})
	require.Error(t, err)
}

func TestResolve_MissingMaintainerWarnsOnly(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.Metadata.Deb.Maintainer = ""

	desc, err := Resolve(cargoToml, nil, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, desc.Maintainer)

	desc.Architecture = "amd64"
	require.NoError(t, Validate(desc))
}

func TestResolve_MaintainerFallsBackToAuthors(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.Metadata.Deb.Maintainer = ""
	cargoToml.Package.RawAuthors = []any{"Jane Dev <jane@example.com>", "Other Dev <other@example.com>"}

	desc, err := Resolve(cargoToml, nil, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Jane Dev <jane@example.com>", desc.Maintainer)
}

func TestResolve_MaintainerCLIOverrideWinsOverAuthors(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.Metadata.Deb.Maintainer = ""
	cargoToml.Package.RawAuthors = []any{"Author <author@example.com>"}

	desc, err := Resolve(cargoToml, nil, BuildOptions{Maintainer: "Override <override@example.com>"})
	require.NoError(t, err)
	assert.Equal(t, "Override <override@example.com>", desc.Maintainer)
}

func TestResolve_RevisionDefaultsToOne(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1", desc.Revision)
	assert.Equal(t, "1.2.3-1", desc.FullVersion())
}

func TestResolve_EmptyDebRevisionOverrideErasesRevision(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{DebRevision: "", DebRevisionSet: true})
	require.NoError(t, err)
	assert.Empty(t, desc.Revision)
	assert.Equal(t, "1.2.3", desc.FullVersion())
}

func TestResolve_VariantNameOverride(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	name := "foo-pro"
	cargoToml.Package.Metadata.Deb.Variants["minimal"] = manifest.Variant{Name: &name}

	desc, err := Resolve(cargoToml, nil, BuildOptions{Variant: "minimal"})
	require.NoError(t, err)
	assert.Equal(t, "foo-pro", desc.Name)
}

func TestResolve_VariantDefaultNameSuffix(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{Variant: "minimal"})
	require.NoError(t, err)
	assert.Equal(t, "hello-cli-minimal", desc.Name)
}

func TestApplyVariant_AssetsReplacesBaseList(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.Metadata.Deb.Variants["minimal"] = manifest.Variant{
		Assets: []manifest.AssetRuleTOML{{Source: "extra.txt", Dest: "usr/share/extra", Mode: "644"}},
	}

	desc, err := Resolve(cargoToml, nil, BuildOptions{Variant: "minimal"})
	require.NoError(t, err)
	require.Len(t, desc.Assets, 1)
	assert.Equal(t, "extra.txt", desc.Assets[0].Source)
}

func TestApplyVariant_MergeAssetsAppend(t *testing.T) {
	t.Parallel()

	cargoToml := sampleCargoToml()
	cargoToml.Package.Metadata.Deb.Variants["minimal"] = manifest.Variant{
		MergeAssets: &manifest.MergeAssets{
			Append: []manifest.AssetRuleTOML{{Source: "cfg", Dest: "etc/foo/cfg", Mode: "644"}},
		},
	}

	desc, err := Resolve(cargoToml, nil, BuildOptions{Variant: "minimal"})
	require.NoError(t, err)
	require.Len(t, desc.Assets, 2)
	assert.Equal(t, "etc/foo/cfg", desc.Assets[1].Dest)
}

func TestValidate_Passes(t *testing.T) {
	t.Parallel()

	desc, err := Resolve(sampleCargoToml(), nil, BuildOptions{})
	require.NoError(t, err)

	desc.Architecture = "amd64"
	require.NoError(t, Validate(desc))
}

func TestFullVersion_NoRevision(t *testing.T) {
	t.Parallel()

	desc := &PackageDescription{Version: "1.0.0"}
	assert.Equal(t, "1.0.0", desc.FullVersion())
}
