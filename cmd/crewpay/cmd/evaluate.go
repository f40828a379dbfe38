package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jbandu/crew-pay/internal/core/config"
	"github.com/jbandu/crew-pay/internal/core/db"
	"github.com/jbandu/crew-pay/internal/engine"
	"github.com/jbandu/crew-pay/internal/store"
	"github.com/jbandu/crew-pay/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compute expected pay for duty facts",
	Long: `Evaluate reads one DutyFacts JSON document (or a JSON array for batch
evaluation) and prints the resulting pay calculation. With --actual, the
expected total is compared against the recorded payment and any
discrepancy is printed instead.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("facts", "-", "duty facts JSON file (- for stdin)")
	evaluateCmd.Flags().String("actual", "", "recorded payment amount to compare against")
}

// buildEngine loads config, opens the rule store, and assembles the engine.
func buildEngine() (*engine.Engine, func(), error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DB.URL = dbURL
	}

	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	database, err := db.Open(cfg.DB.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	graph, err := store.Load(queries)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load rule set: %w", err)
	}

	eng := engine.New(graph, engine.Options{
		Epsilon:              cfg.Engine.Epsilon,
		AutoFixCeiling:       cfg.Engine.AutoFixCeiling,
		AutoApproveThreshold: cfg.Claims.AutoApproveThreshold,
		StrictScenarios:      cfg.Engine.StrictScenarios,
		Workers:              cfg.Batch.Workers,
	}, log)

	return eng, func() { database.Close() }, nil
}

// readInput reads the named file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	factsPath, _ := cmd.Flags().GetString("facts")
	actualStr, _ := cmd.Flags().GetString("actual")

	data, err := readInput(factsPath)
	if err != nil {
		return fmt.Errorf("failed to read facts: %w", err)
	}

	eng, closeStore, err := buildEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	var facts types.DutyFacts
	if err := json.Unmarshal(data, &facts); err != nil {
		// Batch mode: a JSON array of fact documents
		var batch []types.DutyFacts
		if batchErr := json.Unmarshal(data, &batch); batchErr != nil {
			return fmt.Errorf("failed to parse facts: %w", err)
		}
		results := eng.EvaluateBatch(cmd.Context(), batch)
		return printBatch(results)
	}

	if actualStr != "" {
		actual, err := decimal.NewFromString(actualStr)
		if err != nil {
			return fmt.Errorf("invalid --actual amount: %w", err)
		}
		d, err := eng.Detect(facts, actual)
		if err != nil {
			return err
		}
		if d == nil {
			fmt.Println("no discrepancy: recorded payment matches expected pay")
			return nil
		}
		return printJSON(d)
	}

	calc, err := eng.EvaluatePay(facts)
	if err != nil {
		return err
	}
	return printJSON(calc)
}

type batchLine struct {
	Index int                   `json:"index"`
	Calc  *types.PayCalculation `json:"calculation,omitempty"`
	Error string                `json:"error,omitempty"`
}

func printBatch(results []engine.BatchResult) error {
	lines := make([]batchLine, len(results))
	failed := 0
	for i, r := range results {
		lines[i] = batchLine{Index: r.Index, Calc: r.Calculation}
		if r.Err != nil {
			lines[i].Error = r.Err.Error()
			failed++
		}
	}
	if err := printJSON(lines); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, len(results))
	}
	return nil
}
