package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/cortex/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum.
//
// +check
func (t *Cortex) CheckGoModTidy(ctx context.Context) (string, error) {
	_, err := t.goContainer().
		WithExec([]string{"go", "mod", "tidy", "-diff"}).
		Stdout(ctx)

	var execErr *dagger.ExecError
	switch {
	case errors.As(err, &execErr):
		return "", fmt.Errorf("module files need tidying:\n\n%s", execErr.Stdout)
	case err != nil:
		return "", err
	}

	return "go.mod and go.sum are tidy", nil
}
