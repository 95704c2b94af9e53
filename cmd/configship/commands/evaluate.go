package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/cli"
	"github.com/TimurManjosov/goconfigship/internal/condition"
)

var (
	evaluateID          string
	evaluateSignals     []string
	evaluateContextFile string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the active template",
	Long: `Evaluate the currently served template against a client context.

Signals given as --signal key=value are coerced the way JSON would
decode them: "true" and "false" become booleans, numbers become
numbers, everything else stays a string.

Examples:
  configship evaluate --id user-123
  configship evaluate --id user-123 --signal tier=beta --signal age=42
  configship evaluate --context-file ctx.json --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}

		evalCtx, err := buildEvalContext()
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.Evaluate(context.Background(), evalCtx)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		return cli.PrintEvalResult(os.Stdout, result, outFormat)
	},
}

// buildEvalContext assembles the evaluation context from the context
// file, then layers --id and --signal flags on top.
func buildEvalContext() (condition.Context, error) {
	var evalCtx condition.Context

	if evaluateContextFile != "" {
		data, err := os.ReadFile(evaluateContextFile)
		if err != nil {
			return evalCtx, fmt.Errorf("failed to read context file: %w", err)
		}
		if err := json.Unmarshal(data, &evalCtx); err != nil {
			return evalCtx, fmt.Errorf("failed to parse context file: %w", err)
		}
	}

	if evaluateID != "" {
		evalCtx.RandomizationID = evaluateID
	}

	if len(evaluateSignals) > 0 && evalCtx.Signals == nil {
		evalCtx.Signals = make(map[string]any)
	}
	for _, s := range evaluateSignals {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return evalCtx, fmt.Errorf("invalid signal %q, expected key=value", s)
		}
		evalCtx.Signals[key] = coerceSignal(value)
	}

	return evalCtx, nil
}

func coerceSignal(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateID, "id", "", "Randomization ID for percent conditions")
	evaluateCmd.Flags().StringArrayVar(&evaluateSignals, "signal", nil, "Custom signal as key=value (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateContextFile, "context-file", "", "JSON file with the full evaluation context")
}
