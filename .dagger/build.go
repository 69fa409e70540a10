package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/cortex/internal/dagger"
)

// Build cross compiles the cortex CLI for every supported target and
// returns the binaries laid out as <goos>/<goarch>/cortex.
func (t *Cortex) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// go-sqlite3 needs cgo, so only linux targets cross-compile from this image
	gooses := []string{"linux"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	golang := t.goContainer().
		WithExec([]string{"apt-get", "install", "-y", "gcc-aarch64-linux-gnu"})

	for _, goos := range gooses {
		for _, goarch := range goarches {
			dir := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithEnvVariable("CC", cCompiler(goarch)).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", dir, "./cli/cortex"})

			outputs = outputs.WithDirectory(dir, build.Directory(dir))
		}
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (t *Cortex) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/cortex/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/cortex/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/cortex/pkg/utils.Buildtime=%s'", time.Now().UTC().Format(time.RFC3339)),
	}

	return t.Build(ctx, strings.Join(ldflags, " "))
}

// cCompiler returns the C cross compiler for a linux target architecture.
func cCompiler(goarch string) string {
	if goarch == "arm64" {
		return "aarch64-linux-gnu-gcc"
	}
	return "gcc"
}
