package config

import (
	"fmt"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
	"github.com/cargo-deb-go/cargo-deb/pkg/manifest"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Resolve folds workspace defaults, the crate's own [package.metadata.deb],
// a named variant overlay, and CLI overrides into a single
// PackageDescription, in ascending priority: workspace -> package -> variant
// -> CLI. Scalar fields are last-writer-wins; slice fields from a variant
// replace the base list outright unless the variant's field is nil/empty, in
// which case the base value is kept — mirroring a directive-priority
// resolver that never silently drops a base value a variant didn't mention.
func Resolve(cargoToml *manifest.CargoTOML, workspaceDefaults *manifest.PackageManifest, opts BuildOptions) (*PackageDescription, error) {
	pkg := cargoToml.Package
	deb := pkg.Metadata.Deb

	name := deb.Name
	if name == "" {
		name = pkg.Name
	}

	version, inherited := manifest.ResolveInherited(pkg.RawVersion)
	if inherited {
		if workspaceDefaults == nil {
			return nil, pkgerrors.New(pkgerrors.ErrConfig,
				"package.version inherits from workspace but no workspace manifest was found")
		}

		version, _ = manifest.ResolveInherited(workspaceDefaults.RawVersion)
	}

	if opts.DebVersion != "" {
		version = opts.DebVersion
	}

	// revision defaults to "1" (spec §3/§4.1 step 4) unless the metadata
	// sets one; an explicit --deb-revision (even "") always wins, since an
	// empty override is how a caller erases the revision (scenario 6).
	revision := defaultString(deb.Revision, "1")
	if opts.DebRevisionSet {
		revision = opts.DebRevision
	}

	maintainer := deb.Maintainer
	if opts.Maintainer != "" {
		maintainer = opts.Maintainer
	}

	if maintainer == "" {
		maintainer = firstAuthor(pkg.RawAuthors)
	}

	if maintainer == "" {
		logger.Logger.Warn("no maintainer specified in package.metadata.deb or Cargo.toml authors",
			logger.Logger.Args("package", name))
	}

	license, _ := manifest.ResolveInherited(pkg.RawLicense)
	description, _ := manifest.ResolveInherited(pkg.RawDescription)
	homepage, _ := manifest.ResolveInherited(pkg.RawHomepage)

	desc := &PackageDescription{
		Name:          name,
		Version:       version,
		Revision:      revision,
		Maintainer:    maintainer,
		Section:       defaultString(deb.Section, "utils"),
		Priority:      defaultString(deb.Priority, "optional"),
		Homepage:      homepage,
		Description:   description,
		License:       license,
		Depends:       deb.Depends,
		Recommends:    deb.Recommends,
		Suggests:      deb.Suggests,
		Conflicts:     deb.Conflicts,
		Provides:      deb.Provides,
		Replaces:      deb.Replaces,
		Breaks:        deb.Breaks,
		Assets:        convertAssets(deb.Assets),
		ConfFiles:     deb.ConfFiles,
		TriggersFiles:        deb.Triggers,
		MaintainerScriptsDir: deb.MaintainerScripts,
		Changelog:            deb.Changelog,
		CopyrightFile:        deb.CopyrightFile,

		SeparateDebugSymbols: opts.SeparateDebugSymbols,
		CompressDebugSymbols: opts.CompressDebugSymbols,
		Dbgsym:               opts.Dbgsym,
	}

	if opts.Variant != "" {
		variant, ok := deb.Variants[opts.Variant]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.ErrConfig, "unknown variant: "+opts.Variant).
				WithContext("variant", opts.Variant)
		}

		applyVariant(desc, variant)

		if variant.Name != nil {
			desc.Name = *variant.Name
		} else {
			desc.Name = desc.Name + "-" + opts.Variant
		}

		desc.Variant = opts.Variant
	}

	if desc.License != "" {
		valid, _ := spdxexp.ValidateLicenses([]string{desc.License})
		if !valid {
			return nil, pkgerrors.New(pkgerrors.ErrValidation, "invalid SPDX license expression: "+desc.License).
				WithContext("license", desc.License)
		}
	}

	return desc, nil
}

// Validate checks a PackageDescription's struct-level constraints. It is
// called once Architecture has been resolved (the build driver determines
// it from the cargo target), which is why Resolve itself does not validate.
func Validate(desc *PackageDescription) error {
	if err := validate.Struct(desc); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrValidation, "package description failed validation")
	}

	return nil
}

func applyVariant(desc *PackageDescription, variant manifest.Variant) {
	if variant.Section != nil {
		desc.Section = *variant.Section
	}

	if variant.Priority != nil {
		desc.Priority = *variant.Priority
	}

	if variant.Depends != nil {
		desc.Depends = *variant.Depends
	}

	if len(variant.Recommends) > 0 {
		desc.Recommends = variant.Recommends
	}

	// A literal "assets" list replaces the base list outright; only
	// "merge-assets" combines with it (append first, then by-dest/by-src).
	if len(variant.Assets) > 0 {
		desc.Assets = convertAssets(variant.Assets)
	}

	if variant.MergeAssets != nil {
		if len(variant.MergeAssets.Append) > 0 {
			desc.Assets = append(append([]AssetRule{}, desc.Assets...), convertAssets(variant.MergeAssets.Append)...)
		}

		if len(variant.MergeAssets.ByDest) > 0 {
			desc.Assets = mergeAssetRules(desc.Assets, convertAssets(variant.MergeAssets.ByDest), "by-dest")
		}

		if len(variant.MergeAssets.BySrc) > 0 {
			desc.Assets = mergeAssetRules(desc.Assets, convertAssets(variant.MergeAssets.BySrc), "by-src")
		}
	}
}

// firstAuthor returns the first entry of Cargo.toml's [package] authors
// array, or "" when absent or empty, used as the maintainer fallback.
func firstAuthor(raw any) string {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return ""
	}

	author, _ := list[0].(string)

	return author
}

// mergeAssetRules applies "by-dest"/"by-src" replace-all-matches semantics
// at the rule level: an overlay rule whose Dest (or Source) matches a base
// rule's Dest (or Source) replaces it outright; unmatched overlay rules are
// appended.
func mergeAssetRules(base, overlay []AssetRule, strategy string) []AssetRule {
	key := func(r AssetRule) string { return r.Dest }
	if strings.EqualFold(strategy, "by-src") {
		key = func(r AssetRule) string { return r.Source }
	}

	overlayByKey := make(map[string]AssetRule, len(overlay))
	for _, r := range overlay {
		overlayByKey[key(r)] = r
	}

	merged := make([]AssetRule, 0, len(base)+len(overlay))
	consumed := make(map[string]bool, len(overlay))

	for _, r := range base {
		if replacement, ok := overlayByKey[key(r)]; ok {
			merged = append(merged, replacement)
			consumed[key(r)] = true

			continue
		}

		merged = append(merged, r)
	}

	for _, r := range overlay {
		if !consumed[key(r)] {
			merged = append(merged, r)
		}
	}

	return merged
}

func convertAssets(rules []manifest.AssetRuleTOML) []AssetRule {
	out := make([]AssetRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, AssetRule{Source: r.Source, Dest: r.Dest, Mode: r.Mode})
	}

	return out
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

// FullVersion renders the Debian-style "<version>-<revision>" string, or
// just "<version>" when no revision is set, matching dpkg's version syntax.
func (d *PackageDescription) FullVersion() string {
	if d.Revision == "" {
		return d.Version
	}

	return fmt.Sprintf("%s-%s", d.Version, d.Revision)
}
