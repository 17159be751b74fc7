package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/spf13/cobra"

	animalhandler "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/handler"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
)

var matchCmd = &cobra.Command{
	Use:   "match NAME",
	Short: "Match a name locally, without the payment gate",
	Long:  "Scores NAME against the catalog and prints the response the paid endpoint would return. Use --scores to list the closest candidates.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMatch,
}

var (
	matchCatalogPath string
	matchSeed        uint64
	matchScores      int
)

func init() {
	matchCmd.Flags().StringVarP(&matchCatalogPath, "catalog", "c", "", "Path to a JSON or YAML catalog (defaults to the embedded catalog)")
	matchCmd.Flags().Uint64Var(&matchSeed, "seed", 0, "Seed for the tie-break so repeated runs pick the same animal (0 = random)")
	matchCmd.Flags().IntVar(&matchScores, "scores", 0, "Also print the N closest candidates with their distances")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	store, err := loadCatalog(matchCatalogPath)
	if err != nil {
		return err
	}

	var opts []matching.Option
	if matchSeed != 0 {
		opts = append(opts, matching.WithRand(rand.New(rand.NewPCG(matchSeed, matchSeed))))
	}
	matcher, err := matching.New(store.All(), opts...)
	if err != nil {
		return err
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	result := matcher.Match(name)

	out := cmd.OutOrStdout()
	encoded, err := json.MarshalIndent(animalhandler.FromResult(result, matcher.Size()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}
	_, _ = fmt.Fprintln(out, string(encoded))

	if matchScores > 0 {
		scored := matcher.Score(name)
		slices.SortStableFunc(scored, func(a, b matching.ScoredCandidate) int {
			return cmp.Compare(a.Distance, b.Distance)
		})
		for _, c := range scored[:min(matchScores, len(scored))] {
			_, _ = fmt.Fprintf(out, "%3d  %s\n", c.Distance, c.Animal.Name)
		}
	}
	return nil
}
