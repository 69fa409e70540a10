package main

import (
	"context"
	"fmt"
	"path"

	"dagger/cortex/internal/dagger"
)

// releaseBucket is the S3 compatible bucket release binaries are published to.
type releaseBucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// publish syncs dir into the bucket once per prefix.
func (b *releaseBucket) publish(ctx context.Context, dir *dagger.Directory, prefixes ...string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	aws := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/release", dir).
		WithWorkdir("/release")

	for _, prefix := range prefixes {
		dst := "s3://" + path.Join(name, prefix)
		if _, err := aws.
			WithExec([]string{"aws", "s3", "sync", ".", dst, "--endpoint-url", endpoint}).
			Sync(ctx); err != nil {
			return fmt.Errorf("publishing to %s: %w", prefix, err)
		}
	}

	return nil
}

// withChecksums adds a SHA256SUMS file covering every binary in dir.
func withChecksums(ctx context.Context, dir *dagger.Directory) *dagger.Directory {
	sums := dag.Container().
		From("alpine:3.21").
		WithDirectory("/release", dir).
		WithWorkdir("/release").
		WithExec([]string{"sh", "-c", "find . -type f -name cortex | sort | xargs sha256sum > SHA256SUMS"}).
		File("/release/SHA256SUMS")

	return dir.WithFile("SHA256SUMS", sums)
}

// Release builds versioned cortex binaries, checksums them, and publishes
// them under both the version prefix and "latest".
func (t *Cortex) Release(
	ctx context.Context,

	// Release version, e.g. "v0.3.0"
	version string,

	// Git commit SHA
	commit string,

	// +optional
	// Also publish under "latest"
	// +default=true
	latest bool,

	endpoint *dagger.Secret,
	bucket *dagger.Secret,
	accessKeyID *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	dir := withChecksums(ctx, t.BuildRelease(ctx, version, commit))

	prefixes := []string{version}
	if latest {
		prefixes = append(prefixes, "latest")
	}

	b := &releaseBucket{
		endpoint:        endpoint,
		name:            bucket,
		accessKeyID:     accessKeyID,
		secretAccessKey: secretAccessKey,
	}
	if err := b.publish(ctx, dir, prefixes...); err != nil {
		return dir, err
	}

	return dir, nil
}
