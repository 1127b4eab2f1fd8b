package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/influence-diffusion/pkg/experiment"
	"github.com/gilchrisn/influence-diffusion/pkg/graph"
	"github.com/gilchrisn/influence-diffusion/pkg/models"
	"github.com/gilchrisn/influence-diffusion/pkg/service"
)

// experimentFlags maps shared flags to configuration keys
var experimentFlags = map[string]string{
	"t-max":      "simulation.t_max",
	"p":          "simulation.probability",
	"infected":   "seeding.infected",
	"vaccinated": "seeding.vaccinated",
	"trials":     "experiment.trials",
	"seed":       "experiment.random_seed",
	"nodes":      "graph.nodes",
	"edge-list":  "graph.edge_list",
	"workers":    "performance.num_workers",
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare vaccination strategies",
	Long: `Runs every vaccination strategy on an Erdos-Renyi graph and a power-law graph
(or on the graph of --edge-list), averages the trials and prints the mean
state counts at the configured timepoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{
			"strategies": "experiment.strategies",
			"output":     "output.dir",
			"format":     "output.format",
		}
		for flag, key := range experimentFlags {
			overrides[flag] = key
		}
		config, err := loadConfig(cmd, overrides)
		if err != nil {
			return err
		}
		logger := config.CreateLogger()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runCompare(ctx, config, logger, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addExperimentFlags(compareCmd)
	compareCmd.Flags().StringSlice("strategies", nil, "Strategies to compare (random, degree, betweenness)")
	compareCmd.Flags().String("output", "", "Output directory")
	compareCmd.Flags().String("format", "", "Per-cell output format (json or csv)")
}

func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().Int("t-max", 0, "Number of timesteps")
	cmd.Flags().Float64("p", 0, "Conversion probability per exposure")
	cmd.Flags().Int("infected", 0, "Size of the influence A group")
	cmd.Flags().Int("vaccinated", 0, "Size of the influence B group")
	cmd.Flags().Int("trials", 0, "Number of trials")
	cmd.Flags().Int64("seed", 0, "Random seed")
	cmd.Flags().Int("nodes", 0, "Number of nodes of generated graphs")
	cmd.Flags().String("edge-list", "", "Load the network from an edge list file")
	cmd.Flags().Int("workers", 0, "Concurrent trials")
}

func runCompare(ctx context.Context, config *experiment.Config, logger zerolog.Logger, out io.Writer) error {
	strategies := make([]experiment.Strategy, 0, len(config.Strategies()))
	for _, name := range config.Strategies() {
		strategy, err := experiment.ParseStrategy(name)
		if err != nil {
			return err
		}
		strategies = append(strategies, strategy)
	}

	graphs, err := loadGraphs(config)
	if err != nil {
		return err
	}
	for _, ng := range graphs {
		logger.Info().
			Str("graph", ng.Name).
			Int("nodes", ng.Graph.NumNodes()).
			Int("edges", ng.Graph.NumEdges()).
			Msg("Graph ready")
	}

	var status experiment.StatusCallback
	if config.EnableProgress() {
		status = func(percentage int, message string) {
			logger.Info().Int("percentage", percentage).Msg(message)
		}
	}

	params := experiment.ComparisonParams{
		Infected:   config.Infected(),
		Vaccinated: config.Vaccinated(),
		Repeat:     config.RepeatConfig(),
	}
	result, err := experiment.Compare(ctx, graphs, strategies, params, logger, status)
	if err != nil {
		return err
	}

	printComparison(out, result, graphs, strategies, config.SnapshotTimes())

	writer := experiment.NewOutputWriter(config.OutputDir())
	paths, err := writer.WriteComparison(result, config.OutputFormat())
	if err != nil {
		return err
	}
	logger.Info().Strs("files", paths).Msg("Results written")
	return nil
}

// loadGraphs reads the configured edge list, or generates the Erdos-Renyi
// and power-law pair
func loadGraphs(config *experiment.Config) ([]experiment.NamedGraph, error) {
	if path := config.EdgeList(); path != "" {
		g, err := graph.ReadEdgeList(path)
		if err != nil {
			return nil, err
		}
		return []experiment.NamedGraph{{Name: filepath.Base(path), Graph: g}}, nil
	}

	meanDegree := config.ERMeanDegree()
	gamma := config.Gamma()
	specs := []models.GraphSpec{
		{Type: models.GraphErdosRenyi, Nodes: config.NumNodes(), MeanDegree: &meanDegree},
		{Type: models.GraphPowerLaw, Nodes: config.NumNodes(), Gamma: &gamma},
	}
	return service.BuildGraphs(specs, uint64(config.RandomSeed()))
}

func printComparison(out io.Writer, result *experiment.Comparison, graphs []experiment.NamedGraph, strategies []experiment.Strategy, times []int) {
	fmt.Fprintf(out, "\n%d trials, t_max=%d, p=%.2f\n", result.Trials, result.TMax, result.P)

	for _, ng := range graphs {
		fmt.Fprintf(out, "\n%s\n", ng.Name)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "t\tstrategy\tundecided\tinfluence_a\tinfluence_b")
		for _, t := range times {
			for _, strategy := range strategies {
				cell := result.Cell(ng.Name, strategy)
				if cell == nil {
					continue
				}
				s := cell.Averaged.At(t)
				fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\n", t, strategy, s.Undecided, s.A, s.B)
			}
		}
		tw.Flush()

		fmt.Fprintln(out, "final infected:")
		for _, strategy := range strategies {
			if cell := result.Cell(ng.Name, strategy); cell != nil {
				fmt.Fprintf(out, "  %-12s %.2f\n", strategy, cell.FinalInfected)
			}
		}
	}
}
