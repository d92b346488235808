package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casekit/workbench/internal/detect"
	"github.com/casekit/workbench/internal/embed"
	"github.com/casekit/workbench/internal/extract"
	"github.com/casekit/workbench/internal/types"
)

var (
	extractModel string
	fastEntities bool
	embedModel   string
	detectTypes  []string
)

func init() {
	extractCmd.Flags().StringVar(&extractModel, "model", "", "override the extraction model")
	extractCmd.Flags().BoolVar(&fastEntities, "fast-entities", false,
		"also run the local NER pass for entity mentions (no LLM)")
	embedCmd.Flags().StringVar(&embedModel, "model", "", "override the embedding model")
	detectCmd.Flags().StringSliceVar(&detectTypes, "types", nil,
		"detection passes to run (inconsistency, timeline); default all")
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract facts from all transcripts in the case",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		if extractModel != "" {
			cfg.ExtractionModel = extractModel
		}

		c, err := types.LoadCase(dir)
		if err != nil {
			return err
		}
		st, err := openStore(cfg, dir)
		if err != nil {
			return err
		}
		defer st.Close()

		extractor := extract.New(newClient(cfg), cfg)
		total, err := extractor.FromCase(cmd.Context(), st, c)
		if err != nil {
			return err
		}

		if fastEntities {
			fast := extract.NewFastExtractor()
			for _, item := range c.EvidenceItems {
				if !item.HasTranscript() {
					continue
				}
				entities := fast.FromTranscript(item.ID, item.Transcript.Segments)
				if err := st.AddExtractions(entities); err != nil {
					return err
				}
				total += len(entities)
			}
		}

		fmt.Printf("Extracted %d facts\n", total)
		return nil
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate embeddings for extractions that lack one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		if embedModel != "" {
			cfg.EmbeddingModel = embedModel
		}

		st, err := openStore(cfg, dir)
		if err != nil {
			return err
		}
		defer st.Close()

		gen := embed.New(newClient(cfg), cfg)
		created, err := gen.EmbedExtractions(cmd.Context(), st)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d embeddings\n", created)
		return nil
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run connection detection passes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg, dir)
		if err != nil {
			return err
		}
		defer st.Close()

		detector := detect.New(st, newClient(cfg), cfg)
		results, err := detector.Run(cmd.Context(), detectTypes)
		if err != nil {
			return err
		}

		var parts []string
		for _, pass := range detect.AllPasses {
			if n, ok := results[pass]; ok {
				parts = append(parts, fmt.Sprintf("%s: %d", pass, n))
			}
		}
		fmt.Printf("Detection complete (%s)\n", strings.Join(parts, ", "))
		return nil
	},
}
