package main

import (
	"context"
	"fmt"
	"strings"

	"dagger/cortex/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// linter is golangci-lint configured by .golangci.yml, installed into the
// cgo container so go-sqlite3 type checks.
func (t *Cortex) linter() *dagger.Golangcilint {
	base := t.goContainer().
		WithExec([]string{"go", "install", "github.com/golangci/golangci-lint/v2/cmd/golangci-lint@" + golangciLintVersion})

	return dag.Golangcilint(t.Source, dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  t.Source.File(".golangci.yml"),
	})
}

// CheckLint reports lint findings without changing the source.
//
// +check
func (t *Cortex) CheckLint(ctx context.Context) (string, error) {
	return t.linter().Check(ctx)
}

// FixLint applies golangci-lint's automatic fixes and returns the source.
func (t *Cortex) FixLint() *dagger.Directory {
	return t.linter().Lint()
}

// CheckFormat fails when a Go file outside .dagger is not gofmt clean.
//
// +check
func (t *Cortex) CheckFormat(ctx context.Context) (string, error) {
	out, err := t.goContainer().
		WithExec([]string{"sh", "-c", "gofmt -l $(find . -name '*.go' -not -path './.dagger/*')"}).
		Stdout(ctx)
	if err != nil {
		return "", err
	}

	if files := strings.TrimSpace(out); files != "" {
		return "", fmt.Errorf("files need gofmt:\n%s", files)
	}
	return "all files are gofmt clean", nil
}
