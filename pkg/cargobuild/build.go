// Package cargobuild drives `cargo build`, decoding its machine-readable
// JSON message stream to discover the artifacts a packaging run needs,
// instead of guessing paths under target/.
package cargobuild

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"

	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
	"github.com/cargo-deb-go/cargo-deb/pkg/shell"
)

// Artifact is one compiler-artifact cargo reports with an executable path,
// with the package that produced it. Artifacts without an executable
// (libraries) are not recorded.
type Artifact struct {
	PackageID   string
	TargetName  string
	Kind        []string
	BinaryPaths []string
}

// Options configures a cargo build invocation.
type Options struct {
	ManifestDir string
	Profile     string // "release" (default) or "dev"
	Target      string // Rust target triple, "" for host
}

// cargoMessage mirrors the subset of cargo's --message-format=json schema
// this tool needs; unrecognized reason values are skipped.
type cargoMessage struct {
	Reason     string   `json:"reason"`
	PackageID  string   `json:"package_id"`
	Executable *string  `json:"executable"`
	Target     cargoTgt `json:"target"`
}

type cargoTgt struct {
	Name string   `json:"name"`
	Kind []string `json:"kind"`
}

// Build runs cargo build with JSON diagnostics and returns the executable
// artifacts it reported.
func Build(ctx context.Context, opts Options) ([]Artifact, error) {
	args := []string{"build", "--message-format=json-render-diagnostics"}

	profile := opts.Profile
	if profile == "" {
		profile = "release"
	}

	if profile == "release" {
		args = append(args, "--release")
	} else if profile != "dev" {
		args = append(args, "--profile", profile)
	}

	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}

	logger.Logger.Step("🔨", "building crate with cargo")

	out, err := shell.Output(ctx, opts.ManifestDir, "cargo", args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrBuild, "cargo build failed").
			WithOperation("cargobuild.Build")
	}

	return parseArtifacts(out)
}

func parseArtifacts(output []byte) ([]Artifact, error) {
	var artifacts []Artifact

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var msg cargoMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}

		if msg.Reason != "compiler-artifact" || msg.Executable == nil || *msg.Executable == "" {
			continue
		}

		artifacts = append(artifacts, Artifact{
			PackageID:   msg.PackageID,
			TargetName:  msg.Target.Name,
			Kind:        msg.Target.Kind,
			BinaryPaths: []string{filepath.Clean(*msg.Executable)},
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrBuild, "failed to scan cargo build output")
	}

	return artifacts, nil
}

// BinaryPaths returns the "bin"-kind target name -> executable path mapping
// cargo itself reported, used to drive "$auto" asset expansion. Using
// cargo's own reported path (rather than reconstructing target/<profile>/)
// is what makes "$auto" work under cross-compilation and non-release
// profiles, where the executable lives under target/<triple>/<profile>/.
func BinaryPaths(artifacts []Artifact) map[string]string {
	paths := make(map[string]string)

	for _, a := range artifacts {
		for _, kind := range a.Kind {
			if kind == "bin" && len(a.BinaryPaths) > 0 {
				paths[a.TargetName] = a.BinaryPaths[0]
			}
		}
	}

	return paths
}
