// Package cli is the thin command surface over the analysis engine.
// No engine logic lives here; commands load config, open the store and
// delegate.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casekit/workbench/internal/config"
	"github.com/casekit/workbench/internal/ollama"
	"github.com/casekit/workbench/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Evidence workbench - cross-source analysis of transcribed legal evidence",
	Long: `Workbench analyzes transcribed legal evidence to surface candidate
factual inconsistencies, corroborations and timeline conflicts across
independently recorded sources (e.g. multiple body-worn-camera
transcripts for one case).

All findings are advisory and require human confirmation.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// .env is optional; missing file is fine
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String("case", ".", "case directory")
	viper.SetEnvPrefix("WORKBENCH")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("case", rootCmd.PersistentFlags().Lookup("case"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(clusterCmd)
}

func caseDir() string {
	return viper.GetString("case")
}

// loadConfig builds the effective configuration for the case directory
func loadConfig() (config.Config, string, error) {
	dir := caseDir()
	cfg, err := config.Load(dir)
	if err != nil {
		return cfg, dir, err
	}
	return cfg, dir, nil
}

// openStore opens an initialized store or explains how to get one
func openStore(cfg config.Config, dir string) (*store.Store, error) {
	st, err := store.OpenExisting(cfg.DBPath(dir))
	if err == store.ErrNotInitialized {
		return nil, fmt.Errorf("workbench not initialized; run 'workbench init' first")
	}
	return st, err
}

func newClient(cfg config.Config) *ollama.Client {
	return ollama.NewClient(cfg.OllamaBaseURL, cfg.GenerateTimeout, cfg.EmbedTimeout)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workbench database for a case",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DBPath(dir))
		if err != nil {
			return err
		}
		defer st.Close()
		fmt.Printf("Initialized workbench database: %s\n", st.Path())
		return nil
	},
}
