package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbandu/crew-pay/internal/types"
)

var adjudicateCmd = &cobra.Command{
	Use:   "adjudicate",
	Short: "Adjudicate a crew pay claim",
	Long: `Adjudicate reads one ClaimFacts JSON document, recomputes the expected
pay for the claim's duty facts, and prints the decision with its full
rationale.`,
	RunE: runAdjudicate,
}

func init() {
	rootCmd.AddCommand(adjudicateCmd)
	adjudicateCmd.Flags().String("claim", "-", "claim JSON file (- for stdin)")
}

func runAdjudicate(cmd *cobra.Command, args []string) error {
	claimPath, _ := cmd.Flags().GetString("claim")
	data, err := readInput(claimPath)
	if err != nil {
		return fmt.Errorf("failed to read claim: %w", err)
	}

	var claim types.ClaimFacts
	if err := json.Unmarshal(data, &claim); err != nil {
		return fmt.Errorf("failed to parse claim: %w", err)
	}
	if claim.ClaimID == "" {
		claim.ClaimID = types.NewClaimID()
	}

	eng, closeStore, err := buildEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	decision, err := eng.Adjudicate(claim)
	if err != nil {
		return err
	}
	return printJSON(decision)
}
