package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/cortex/pkg/cortex"
)

var (
	runCallableToolName    = "run_callable"
	runCallableDescription = "Run a Cortex callable to completion and return the first result of every block."
)

// RunCallableInput represents the input arguments for the run_callable tool.
type RunCallableInput struct {
	CallableID string         `json:"callable_id" jsonschema:"the callable id"`
	Version    string         `json:"version,omitempty" jsonschema:"the callable version (defaults to latest)"`
	Inputs     []any          `json:"inputs,omitempty" jsonschema:"the callable inputs"`
	Config     map[string]any `json:"config,omitempty" jsonschema:"per-block configuration overrides"`
}

// BlockOutput is the first execution result of one block.
type BlockOutput struct {
	BlockType string `json:"block_type"`
	BlockName string `json:"block_name"`
	Value     any    `json:"value,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunCallableOutput represents the output of the run_callable tool.
type RunCallableOutput struct {
	RunID  string        `json:"run_id"`
	Status string        `json:"status"`
	Blocks []BlockOutput `json:"blocks,omitempty"`
}

func (s *Server) handleRunCallable(ctx context.Context, _ *mcp.CallToolRequest, input RunCallableInput) (*mcp.CallToolResult, RunCallableOutput, error) {
	if input.CallableID == "" {
		return errorResult("callable_id is required"), RunCallableOutput{}, nil
	}

	version := cortex.Version(input.Version)
	if version == "" {
		version = "latest"
	}

	inputs := input.Inputs
	if inputs == nil {
		inputs = []any{}
	}

	s.config.Logger.Debug("MCP run_callable", "callable", input.CallableID, "version", version)

	resp, err := s.config.Client.RunCallable(ctx, input.CallableID, cortex.CallableParams{
		Version:  version,
		Config:   input.Config,
		Inputs:   inputs,
		Blocking: true,
	})
	if err != nil {
		return errorResult("Failed to run callable: %v", err), RunCallableOutput{}, nil
	}

	output := buildRunCallableOutput(resp.Run)
	return jsonResult(output), output, nil
}

// buildRunCallableOutput keeps execution[0][0] of every traced block.
func buildRunCallableOutput(run cortex.Run) RunCallableOutput {
	output := RunCallableOutput{
		RunID:  run.RunID,
		Status: string(run.Status.Run),
	}

	for _, trace := range run.Traces {
		block := BlockOutput{
			BlockType: string(trace.BlockType),
			BlockName: trace.BlockName,
		}
		if len(trace.Execution) > 0 && len(trace.Execution[0]) > 0 {
			first := trace.Execution[0][0]
			if first.HasError() {
				block.Error = first.ErrorText()
			}
			if first.HasValue() {
				var v any
				if err := json.Unmarshal(first.Value, &v); err == nil {
					block.Value = v
				}
			}
		}
		output.Blocks = append(output.Blocks, block)
	}

	return output
}
