package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/spigell/opportunity-matcher/internal/matching"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a skill set against required skills and explain the result",
	Example: `  opportunity-matcher score --skills '["Python","Docker","SQL"]' --required 'Python,SQL,Kubernetes'
  opportunity-matcher score --skills React --required Vue --strategy direct`,
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("skills", "s", "", "candidate skills: a JSON array or a single skill")
	scoreCmd.Flags().StringP("required", "r", "", "required skills: a JSON array or a single skill")
	scoreCmd.Flags().String("strategy", "", "taxonomy or direct (overrides matching.strategy)")
}

func score(cmd *cobra.Command) {
	l, config := setup()
	defer l.Sync()

	candidate, _ := cmd.Flags().GetString("skills")
	required, _ := cmd.Flags().GetString("required")

	scorer, err := newScorer(config)
	if err != nil {
		log.Fatalf("building the scorer: %s", err)
	}

	if name, _ := cmd.Flags().GetString("strategy"); name != "" {
		strategy, err := matching.ParseStrategy(name)
		if err != nil {
			log.Fatal(err)
		}
		scorer = scorer.With(matching.WithStrategy(strategy))
	}

	printJSON(scorer.Explain(candidate, required))
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encoding output: %s", err)
	}
	fmt.Fprintln(os.Stdout, string(pretty))
}
