package docscmder

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/docsync"
)

const syncLongDesc string = `Mirror a directory into the knowledge base.

Every regular file below the directory is uploaded once; hidden files and
directories are skipped. Document ids are the file's path relative to the
directory with separators replaced by "_" (guides/setup.md → guides_setup.md).

With --watch, cortex keeps running and uploads created or modified files and
deletes the documents of removed or renamed files until interrupted.`

func newSyncCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync <dir>",
		Short: "Mirror a directory into the knowledge base",
		Long:  syncLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newDocsCommander(cmd, config.SyncFlags)
			if err != nil {
				return err
			}
			defer c.close()

			return c.runSync(cmd, args[0], watch)
		},
	}

	addDocsFlags(cmd)
	config.AddUintFlag(cmd, config.SyncFlags, config.FlagSyncWorkers, new(uint))
	config.AddUintFlag(cmd, config.SyncFlags, config.FlagSyncQueueSize, new(uint))
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching the directory for changes")

	return cmd
}

func (c *docsCommander) runSync(cmd *cobra.Command, dir string, watch bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var synced, failed atomic.Int64
	pool, err := docsync.NewPool(&docsync.Config{
		Documents:  c.client,
		NumWorkers: c.cfg.Sync.Workers,
		QueueSize:  c.cfg.Sync.QueueSize,
		Logger:     c.logger,
		OnResult: func(r docsync.Result) {
			if r.Err != nil {
				failed.Add(1)
				return
			}
			synced.Add(1)
		},
	})
	if err != nil {
		return err
	}

	var watcher *docsync.Watcher
	if watch {
		// Start watching before the initial walk so no change slips between them.
		watcher, err = docsync.NewWatcher(docsync.WatcherConfig{
			Root:      dir,
			Knowledge: c.knowledge,
			Pool:      pool,
			Logger:    c.logger,
		})
		if err != nil {
			pool.Close()
			return err
		}
	}

	out := cmd.ErrOrStderr()
	var enqueued int
	err = cliui.Step(out, fmt.Sprintf("Syncing %s into %s", dir, c.knowledge), func() error {
		var syncErr error
		enqueued, syncErr = docsync.SyncDir(ctx, pool, dir, c.knowledge)
		return syncErr
	})

	if err != nil && watcher != nil {
		_ = watcher.Close()
	}
	if err == nil && watcher != nil {
		fmt.Fprintf(out, "  %s Watching %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(dir),
			cliui.DimStyle.Render("(ctrl+c to stop)"),
		)
		err = watcher.Run(ctx)
	}

	pool.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s %d enqueued, %d synced, %d failed\n\n",
		cliui.Mark(err),
		enqueued,
		synced.Load(),
		failed.Load(),
	)

	if err != nil && ctx.Err() == nil {
		return err
	}
	if n := failed.Load(); n > 0 && !watch {
		return fmt.Errorf("%d documents failed to sync", n)
	}
	return nil
}
