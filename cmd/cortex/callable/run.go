package callablecmder

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/runevent"
	"github.com/papercomputeco/cortex/pkg/utils"
)

const runLongDesc string = `Run a callable.

Each --input is one JSON value passed to the callable, in order. --config is a
JSON object of per-block configuration overrides.

Without --stream the run is blocking and the first result of every block is
printed when it finishes. With --stream every run event is printed as one JSON
line on stdout as it arrives, and the run id is reported on stderr.`

type runCommander struct {
	callableID string
	version    string
	inputs     []string
	config     string
	stream     bool

	logger *slog.Logger
}

func newRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run <callable-id>",
		Short: "Run a callable",
		Long:  runLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.callableID = args[0]
			return cmder.run(cmd)
		},
	}

	cmdutil.AddClientFlags(cmd)
	cmd.Flags().StringVar(&cmder.version, "callable-version", "latest", "Callable version to run")
	cmd.Flags().StringArrayVarP(&cmder.inputs, "input", "i", nil, "JSON input value (repeatable)")
	cmd.Flags().StringVar(&cmder.config, "config", "", "JSON object of block configuration overrides")
	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Stream run events as they happen")

	return cmd
}

func (c *runCommander) params() (cortex.CallableParams, error) {
	params := cortex.CallableParams{
		Version: cortex.Version(c.version),
		Config:  cortex.BlockConfig{},
		Inputs:  make([]any, 0, len(c.inputs)),
	}

	for i, raw := range c.inputs {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return params, fmt.Errorf("input %d is not valid JSON: %w", i+1, err)
		}
		params.Inputs = append(params.Inputs, v)
	}

	if c.config != "" {
		if err := json.Unmarshal([]byte(c.config), &params.Config); err != nil {
			return params, fmt.Errorf("--config is not a JSON object: %w", err)
		}
	}

	return params, nil
}

func (c *runCommander) run(cmd *cobra.Command) error {
	params, err := c.params()
	if err != nil {
		return err
	}

	cfg, err := cmdutil.LoadConfig(cmd)
	if err != nil {
		return err
	}

	c.logger = cmdutil.NewLogger(cmd)
	client, pub, err := cmdutil.NewClient(cfg, cmdutil.ConfigDir(cmd), c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	if c.stream {
		return c.runStream(cmd, client, params)
	}
	return c.runBlocking(cmd, client, params)
}

func (c *runCommander) runBlocking(cmd *cobra.Command, client *cortex.Client, params cortex.CallableParams) error {
	params.Blocking = true

	var resp *cortex.RunResponse
	err := cliui.Step(cmd.ErrOrStderr(), "Running "+c.callableID, func() error {
		var runErr error
		resp, runErr = client.RunCallable(cmd.Context(), c.callableID, params)
		return runErr
	})
	if err != nil {
		return err
	}

	printRun(cmd.OutOrStdout(), resp.Run)
	return nil
}

func (c *runCommander) runStream(cmd *cobra.Command, client *cortex.Client, params cortex.CallableParams) error {
	s, err := client.RunCallableStream(cmd.Context(), c.callableID, params)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	var failed *runevent.Error
	for ev := range s.Events() {
		line, err := runevent.Encode(ev)
		if err != nil {
			c.logger.Warn("failed to encode run event", "kind", ev.Kind(), "error", err)
			continue
		}
		fmt.Fprintln(out, string(line))

		if e, ok := ev.(*runevent.Error); ok && failed == nil {
			failed = e
		}
	}

	if runID, ok := s.RunID().Peek(); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s run %s\n", cliui.Mark(nil), cliui.IDStyle.Render(runID))
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", cliui.WarnStyle.Render("stream ended without a run id"))
	}

	if failed != nil {
		return fmt.Errorf("run failed: %s: %s", failed.Code, failed.Message)
	}
	return nil
}

func printRun(out io.Writer, run cortex.Run) {
	fmt.Fprintf(out, "\n  %s  %s\n", cliui.KeyStyle.Render("run   "), cliui.IDStyle.Render(run.RunID))
	fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render("status"), cliui.ValueStyle.Render(string(run.Status.Run)))

	for _, trace := range run.Traces {
		name := cliui.NameStyle.Render(trace.BlockName) + " " + cliui.DimStyle.Render(string(trace.BlockType))
		if len(trace.Execution) == 0 || len(trace.Execution[0]) == 0 {
			fmt.Fprintf(out, "  %s\n", name)
			continue
		}

		first := trace.Execution[0][0]
		switch {
		case first.HasError():
			fmt.Fprintf(out, "  %s %s  %s\n", cliui.FailMark, name, first.ErrorText())
		case first.HasValue():
			fmt.Fprintf(out, "  %s %s  %s\n", cliui.SuccessMark, name, utils.Truncate(string(first.Value), 200))
		default:
			fmt.Fprintf(out, "  %s %s\n", cliui.SuccessMark, name)
		}
	}
	fmt.Fprintln(out)
}
