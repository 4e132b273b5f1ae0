package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"videothingy/council-highlights/config"
	"videothingy/council-highlights/internal/db"
	"videothingy/council-highlights/internal/playback"
	"videothingy/council-highlights/internal/selection"
	"videothingy/council-highlights/internal/server"
	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/models"
)

func newRootCommand() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "highlightctl",
		Short: "Council meeting highlight service and tools",
		Long: `highlightctl serves the highlight editing API and offers offline checks
over exported transcripts and highlights.

Transcript and highlight files are the JSON documents returned by the API.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv(config.FileEnvVar), "Path to the YAML config file")

	loadConfig := func() (*config.Config, error) {
		return config.Load(cfgFile)
	}
	root.AddCommand(
		newServeCommand(loadConfig),
		newStatsCommand(),
		newCheckExtractCommand(),
		newJobCommand(loadConfig),
	)
	return root
}

type configLoader func() (*config.Config, error)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg, logger)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
}

func newStatsCommand() *cobra.Command {
	var transcriptPath, highlightPath string
	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Print the chronological clips and statistics of a highlight",
		Example: `  highlightctl stats --transcript meeting.json --highlight highlight.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := readIndex(transcriptPath)
			if err != nil {
				return err
			}
			var h models.Highlight
			if err := readJSON(highlightPath, &h); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), playback.Derive(&h, idx))
		},
	}
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Transcript JSON file")
	cmd.Flags().StringVar(&highlightPath, "highlight", "", "Highlight JSON file")
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("highlight")
	return cmd
}

func newCheckExtractCommand() *cobra.Command {
	var transcriptPath string
	var ids []string
	cmd := &cobra.Command{
		Use:     "check-extract",
		Short:   "Check whether a set of utterances can be extracted into a new segment",
		Example: `  highlightctl check-extract --transcript meeting.json --select u-12,u-13`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := readIndex(transcriptPath)
			if err != nil {
				return err
			}
			plan, err := selection.PlanExtraction(idx, ids)
			if err != nil {
				return fmt.Errorf("cannot extract: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				selection.Plan
				ExtractionCount int `json:"extraction_count"`
			}{plan, plan.ExtractionCount()})
		},
	}
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Transcript JSON file")
	cmd.Flags().StringSliceVar(&ids, "select", nil, "Comma-separated utterance ids")
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("select")
	return cmd
}

func newJobCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show a render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			logger.SetOutput(cmd.ErrOrStderr())
			client, err := db.NewPostgrestClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
			if err != nil {
				return err
			}
			job, err := db.NewStore(client, logger).GetJob(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), job)
		},
	}
}

func readIndex(path string) (*transcript.Index, error) {
	var t models.Transcript
	if err := readJSON(path, &t); err != nil {
		return nil, err
	}
	if err := transcript.Validate(&t); err != nil {
		return nil, err
	}
	return transcript.NewIndex(&t), nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
