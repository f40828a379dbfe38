package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbandu/crew-pay/internal/core/config"
	"github.com/jbandu/crew-pay/internal/core/db"
	"github.com/jbandu/crew-pay/internal/store"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Validate the stored rule set and print a summary",
	Long: `Graph loads the stored rule set through full validation (unknown
references, duplicate codes, dependency cycles, ambiguous formulas) and
prints the node counts and component evaluation order. A rule set that
fails here will fail identically at engine start.`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DB.URL = dbURL
	}

	database, err := db.Open(cfg.DB.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	rs, err := store.LoadRuleSet(queries)
	if err != nil {
		return fmt.Errorf("failed to read rule set: %w", err)
	}

	graph, err := store.Load(queries)
	if err != nil {
		return fmt.Errorf("rule set validation failed: %w", err)
	}

	fmt.Printf("rules:       %d\n", len(rs.Rules))
	fmt.Printf("terms:       %d\n", len(rs.Terms))
	fmt.Printf("scenarios:   %d\n", len(rs.Scenarios))
	fmt.Printf("components:  %d\n", len(rs.Components))
	fmt.Printf("edges:       %d applies_to, %d requires, %d depends_on, %d conflicts, %d supersedes, %d modifies\n",
		len(rs.Edges.AppliesTo), len(rs.Edges.Requires), len(rs.Edges.DependsOn),
		len(rs.Edges.Conflicts), len(rs.Edges.Supersedes), len(rs.Edges.Modifies))
	fmt.Printf("evaluation order: %v\n", graph.ComponentOrder())
	return nil
}
