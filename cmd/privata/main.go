// Package main is the entry point for the privata binary, a command line
// front end for the sensitive-data gateway pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/privata-ai/privata-oss/pkg/anonymize"
	"github.com/privata-ai/privata-oss/pkg/config"
	"github.com/privata-ai/privata-oss/pkg/detect"
	"github.com/privata-ai/privata-oss/pkg/logging"
	"github.com/privata-ai/privata-oss/pkg/outputguard"
	"github.com/privata-ai/privata-oss/pkg/pipeline"
	"github.com/privata-ai/privata-oss/pkg/session"
	"github.com/privata-ai/privata-oss/pkg/telemetry"
)

const (
	formatJSON = "json"
	formatText = "text"
)

type rootFlags struct {
	configPath string
	tenant     string
	role       string
	sessionID  string
	format     string
	logLevel   string
	entities   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "privata",
		Short: "Sensitive-data gateway for text sent to external language models",
		Long: `privata detects sensitive content, anonymizes it, and decides whether a
piece of text may be forwarded to an external model. Text is read from a
file argument or stdin.

Example:
  echo "My email is jane@firm.com" | privata sanitize`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file (YAML)")
	pf.StringVarP(&flags.tenant, "tenant", "t", "default", "Tenant identifier")
	pf.StringVarP(&flags.role, "role", "r", "employee", "Requesting role")
	pf.StringVarP(&flags.sessionID, "session", "s", "", "Session identifier for entity continuity")
	pf.StringVarP(&flags.format, "format", "f", formatJSON, "Output format (json, text)")
	pf.StringVarP(&flags.logLevel, "log-level", "l", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newAnalyzeCmd(flags),
		newSanitizeCmd(flags),
		newDecideCmd(flags),
		newScanOutputCmd(flags),
	)
	return rootCmd
}

// setup runs the shared bootstrap: .env, logging, and config.
func setup(flags *rootFlags) (*config.Config, zerolog.Logger, error) {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		cfg = loaded
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger := logging.Setup(logging.Config{Level: level, Pretty: true})
	return cfg, logger, nil
}

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Detect sensitive content and report risk",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := setup(flags); err != nil {
				return err
			}
			text, err := readInput(args)
			if err != nil {
				return err
			}

			analysis := detect.Default().Analyze(text)
			if flags.format == formatText {
				fmt.Fprintf(cmd.OutOrStdout(), "risk: %s score: %d findings: %d\n",
					analysis.RiskLevel, analysis.AnomalyScore, len(analysis.Findings))
				for _, f := range analysis.Findings {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s [%d:%d]\n", f.Category, f.Start, f.End)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), analysis)
		},
	}
}

func newSanitizeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Replace sensitive values with category placeholders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := setup(flags); err != nil {
				return err
			}
			text, err := readInput(args)
			if err != nil {
				return err
			}

			analysis := detect.Default().Analyze(text)
			result := anonymize.Anonymize(text, analysis.Findings)
			entities := anonymize.BuildEntityMap(analysis.Findings)

			if flags.format == formatText {
				fmt.Fprintln(cmd.OutOrStdout(), result.SanitizedText)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"sanitized_text": result.SanitizedText,
				"changed":        result.Changed,
				"entities":       entities.Snapshot(),
			})
		},
	}
}

func newDecideCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decide [file]",
		Short: "Run the full pipeline and print the policy decision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			text, err := readInput(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
				ServiceName: "privata",
				Endpoint:    cfg.Telemetry.Endpoint,
				Insecure:    cfg.Telemetry.Insecure,
			})
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(context.Background()) }()

			store := session.NewStore(session.Config{TTL: cfg.Session.TTL.Std()}, logger)
			gateway, err := pipeline.New(ctx, pipeline.Options{
				Config:   staticConfig{cfg},
				Sessions: store,
				Metrics:  telemetry.NewMetrics(),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			result, err := gateway.Process(ctx, pipeline.Request{
				TenantID:  flags.tenant,
				SessionID: flags.sessionID,
				Role:      flags.role,
				Text:      text,
			})
			if err != nil {
				return err
			}

			if flags.format == formatText {
				fmt.Fprintf(cmd.OutOrStdout(), "action: %s\n", result.Decision.Action)
				if result.Decision.UserMessage != "" {
					fmt.Fprintln(cmd.OutOrStdout(), result.Decision.UserMessage)
				}
				if result.OutboundText != "" {
					fmt.Fprintln(cmd.OutOrStdout(), result.OutboundText)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newScanOutputCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan-output [file]",
		Short: "Screen a model response for leaks and reversal attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := setup(flags); err != nil {
				return err
			}
			text, err := readInput(args)
			if err != nil {
				return err
			}

			entities, err := loadEntities(flags.entities)
			if err != nil {
				return err
			}

			report := outputguard.ScanOutput(text, entities)
			if flags.format == formatText {
				if report.Safe {
					fmt.Fprintln(cmd.OutOrStdout(), "safe")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "unsafe (%d findings)\n", len(report.Findings))
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Text)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&flags.entities, "entities", "e", "", "Path to a JSON entity map (placeholder -> entry)")
	return cmd
}

// staticConfig adapts a one-shot CLI config to the pipeline's source
// interface.
type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Current() *config.Config { return s.cfg }

// readInput reads the file argument, or stdin when none is given.
func readInput(args []string) (string, error) {
	if len(args) == 1 {
		// #nosec G304 -- path comes from the operator invoking the CLI
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func loadEntities(path string) (map[string]anonymize.Entry, error) {
	if path == "" {
		return nil, nil
	}
	// #nosec G304 -- path comes from the operator invoking the CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}
	var entities map[string]anonymize.Entry
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("parse entities: %w", err)
	}
	return entities, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
