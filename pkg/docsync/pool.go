// Package docsync mirrors local files into a Cortex knowledge base.
//
// Uploads and deletes run on a worker pool so that directory walks and
// filesystem notifications never block on the network.
package docsync

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/logger"
)

var (
	defaultNumWorkers   uint = 4
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 2 * time.Minute
)

// Op is the operation a Job performs.
type Op string

const (
	OpUpload Op = "upload"
	OpDelete Op = "delete"
)

// Job is a unit of work for the pool.
type Job struct {
	Op         Op
	Knowledge  string
	DocumentID string

	// Path is the local file read for uploads.
	Path string

	Tags []string
}

// Result reports the outcome of a processed Job.
type Result struct {
	Job Job
	Err error
}

// Documents is the subset of *cortex.Client the pool drives.
type Documents interface {
	UploadDocument(ctx context.Context, knowledge, documentID string, doc cortex.CreateDocument) (*cortex.UploadDocumentResponse, error)
	DeleteDocument(ctx context.Context, knowledge, documentID string) (*cortex.DocumentResponse, error)
}

// Config is the configuration options for the pool.
type Config struct {
	// Documents receives uploads and deletes.
	Documents Documents

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single upload or delete (defaults to 2m).
	JobTimeout time.Duration

	// OnResult, when set, is called from the worker after every job.
	OnResult func(Result)

	// Now is the time source for document timestamps.
	Now func() time.Time

	Logger *slog.Logger
}

// Pool processes sync jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Documents == nil {
		return nil, fmt.Errorf("documents client is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing by the pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"op", job.Op,
			"knowledge", job.Knowledge,
			"document_id", job.DocumentID,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"op", job.Op,
			"knowledge", job.Knowledge,
			"document_id", job.DocumentID,
		)
		return false
	}
}

// EnqueueWait submits a job, waiting for queue capacity until ctx is done.
func (p *Pool) EnqueueWait(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"op", job.Op,
			"knowledge", job.Knowledge,
			"document_id", job.DocumentID,
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued jobs to drain.
// Enqueue must not be called after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("sync worker started", "worker_id", id)

	for job := range p.queue {
		err := p.processJob(job)
		if err != nil {
			p.logger.Error("sync job failed",
				"op", job.Op,
				"document_id", job.DocumentID,
				"error", err,
			)
		} else {
			p.logger.Info("document synced",
				"op", job.Op,
				"knowledge", job.Knowledge,
				"document_id", job.DocumentID,
			)
		}

		if p.config.OnResult != nil {
			p.config.OnResult(Result{Job: job, Err: err})
		}
	}

	p.logger.Debug("sync worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	switch job.Op {
	case OpUpload:
		doc, err := ReadDocument(job.Path, job.Tags, p.config.Now())
		if err != nil {
			return err
		}
		_, err = p.config.Documents.UploadDocument(ctx, job.Knowledge, job.DocumentID, doc)
		return err

	case OpDelete:
		_, err := p.config.Documents.DeleteDocument(ctx, job.Knowledge, job.DocumentID)
		return err

	default:
		return fmt.Errorf("unknown sync op %q", job.Op)
	}
}

// ReadDocument builds the upload body for the file at path.
func ReadDocument(path string, tags []string, now time.Time) (cortex.CreateDocument, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return cortex.CreateDocument{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return cortex.CreateDocument{
		Timestamp: now.UnixMilli(),
		Tags:      tags,
		Text:      string(text),
		SourceURL: FileURL(path),
	}, nil
}

// FileURL returns the file:// URL of path, made absolute when possible.
func FileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
