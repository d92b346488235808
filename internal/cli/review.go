package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casekit/workbench/internal/logging"
	"github.com/casekit/workbench/internal/similarity"
	"github.com/casekit/workbench/internal/store"
	"github.com/casekit/workbench/internal/types"
)

var (
	reviewConfirm    bool
	reviewReject     bool
	clusterThreshold float64
)

func init() {
	reviewCmd.Flags().BoolVar(&reviewConfirm, "confirm", false, "mark the connection confirmed")
	reviewCmd.Flags().BoolVar(&reviewReject, "reject", false, "mark the connection rejected")
	clusterCmd.Flags().Float64Var(&clusterThreshold, "threshold", 0.8, "similarity threshold for cluster membership")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workbench statistics and pending findings",
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

		stats, err := st.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Extractions: %d\n", stats.Extractions)
		fmt.Printf("Embeddings:  %d\n", stats.Embeddings)
		fmt.Printf("Connections: %d\n", stats.ConnectionsTotal)
		for _, t := range types.ConnectionTypes {
			if n := stats.ConnectionsByType[t]; n > 0 {
				fmt.Printf("  %-24s %d\n", t, n)
			}
		}
		for _, s := range types.ConnectionStatuses {
			fmt.Printf("  %-24s %d\n", s, stats.ConnectionsByStatus[s])
		}

		pending, err := st.GetConnections(store.ConnectionFilter{
			Status: types.StatusPending,
			Limit:  10,
		})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			fmt.Println("\nTop pending findings:")
			for _, c := range pending {
				sev := ""
				if c.Severity != "" {
					sev = fmt.Sprintf(" [%s]", c.Severity)
				}
				fmt.Printf("  %s  %.2f  %s%s\n    %s\n",
					c.ID, c.Confidence, c.Type, sev, logging.Snippet(c.Reasoning, 100))
			}
		}
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <connection-id>",
	Short: "Confirm or reject a suggested connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reviewConfirm == reviewReject {
			return fmt.Errorf("pass exactly one of --confirm or --reject")
		}

		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg, dir)
		if err != nil {
			return err
		}
		defer st.Close()

		status := types.StatusConfirmed
		if reviewReject {
			status = types.StatusRejected
		}
		ok, err := st.UpdateConnectionStatus(args[0], status)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("connection %s not found", args[0])
		}
		fmt.Printf("Connection %s marked %s\n", args[0], status)
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group embedded extractions into similarity clusters",
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

		records, err := st.AllEmbeddings()
		if err != nil {
			return err
		}
		embeddings := make([]similarity.Embedding, 0, len(records))
		for _, rec := range records {
			vec, err := similarity.DecodeVector(rec.Vector)
			if err != nil {
				return err
			}
			embeddings = append(embeddings, similarity.Embedding{ID: rec.ExtractionID, Vector: vec})
		}

		clusters, err := similarity.ClusterBySimilarity(embeddings, clusterThreshold)
		if err != nil {
			return err
		}

		fmt.Printf("%d clusters from %d embeddings\n", len(clusters), len(embeddings))
		for i, cluster := range clusters {
			if len(cluster) < 2 {
				continue
			}
			var contents []string
			for _, id := range cluster {
				e, err := st.GetExtraction(id)
				if err != nil {
					return err
				}
				if e != nil {
					contents = append(contents, logging.Snippet(e.Content, 60))
				}
			}
			fmt.Printf("Cluster %d (%d members):\n  %s\n", i+1, len(cluster),
				strings.Join(contents, "\n  "))
		}
		return nil
	},
}
