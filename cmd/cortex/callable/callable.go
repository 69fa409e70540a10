// Package callablecmder provides the callable command for running Cortex
// callables.
package callablecmder

import (
	"github.com/spf13/cobra"
)

const callableLongDesc string = `Run Cortex callables.

Examples:
  cortex callable run app_123 --input '{"question":"2+2?"}'
  cortex callable run app_123 --input '{"question":"2+2?"}' --stream`

func NewCallableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callable",
		Short: "Run Cortex callables",
		Long:  callableLongDesc,
	}

	cmd.AddCommand(newRunCmd())

	return cmd
}
