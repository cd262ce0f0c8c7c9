package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/model"
)

// exitInvalid is the exit code for --fail-on-invalid.
const exitInvalid = 2

var validateCmd = &cobra.Command{
	Use:   "validate [file|-]",
	Short: "Validate one AI response read from a file or stdin",
	Long: `Validate one AI response locally and print the result as JSON.

The input is a JSON object:
  {"query": "...", "response": "...", "sources": [{"title": "...", "content": "..."}]}

Examples:
  # Validate a file
  aivalidator validate input.json

  # Validate from stdin, failing the pipeline on a low score
  cat input.json | aivalidator validate --fail-on-invalid -

  # Turn on the LLM checks for this run
  aivalidator validate --accuracy --hallucination input.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("fail-on-invalid", false, "exit with status 2 when the response is not valid")
	addCheckFlags(validateCmd.Flags())
}

// addCheckFlags registers the per-run overrides of the validation config.
func addCheckFlags(fs *pflag.FlagSet) {
	fs.String("provider", "", "LLM provider for accuracy and hallucination checks (openai, claude)")
	fs.Float64("threshold", config.DefaultConfidenceThreshold, "minimum confidence for a valid response")
	fs.String("failure-policy", "", "what a failed LLM check means (fail_closed, exclude_failed)")
	fs.Bool("developer-mode", false, "grade responses with the developer rubric")
	fs.Bool("semantic", false, "use the semantic LLM grader for context relevance")
	fs.Bool("accuracy", false, "run the LLM accuracy check")
	fs.Bool("hallucination", false, "run the LLM hallucination check")
}

// applyCheckFlags copies explicitly set flags onto cfg.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	var err error
	if fs.Changed("provider") {
		cfg.Validation.Provider, err = fs.GetString("provider")
		if err != nil {
			return err
		}
	}
	if fs.Changed("threshold") {
		cfg.Validation.ConfidenceThreshold, err = fs.GetFloat64("threshold")
		if err != nil {
			return err
		}
	}
	if fs.Changed("failure-policy") {
		p, err := fs.GetString("failure-policy")
		if err != nil {
			return err
		}
		cfg.Validation.FailurePolicy = config.FailurePolicy(p)
	}
	for name, dst := range map[string]*bool{
		"developer-mode": &cfg.Validation.DeveloperMode,
		"semantic":       &cfg.Checks.SemanticGrader,
		"accuracy":       &cfg.Checks.Accuracy,
		"hallucination":  &cfg.Checks.Hallucination,
	} {
		if !fs.Changed(name) {
			continue
		}
		if *dst, err = fs.GetBool(name); err != nil {
			return err
		}
	}
	return nil
}

// runValidate handles the validate command
func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	in, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd, applyCheckFlags)
	if err != nil {
		return err
	}
	defer a.close()

	result := a.validator.Validate(ctx, in)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	failOnInvalid, _ := cmd.Flags().GetBool("fail-on-invalid")
	if failOnInvalid && !result.Valid {
		return &exitError{code: exitInvalid, msg: fmt.Sprintf("response is not valid (confidence %.2f)", result.Confidence)}
	}
	return nil
}

// readInput decodes a ValidationInput from the named file, or from stdin
// when no file or "-" is given.
func readInput(stdin io.Reader, args []string) (model.ValidationInput, error) {
	var in model.ValidationInput
	var content []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(stdin)
		if err != nil {
			return in, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return in, fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}

	if len(content) == 0 {
		return in, fmt.Errorf("no input to validate")
	}
	if err := json.Unmarshal(content, &in); err != nil {
		return in, fmt.Errorf("failed to parse input: %w", err)
	}
	if in.Response == "" {
		return in, fmt.Errorf("input has no response to validate")
	}
	return in, nil
}
