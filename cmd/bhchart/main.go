// Command bhchart classifies a weekly Batch Health sheet and renders the
// comparison chart without running the service.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"batch-health/internal/analytics"
	"batch-health/internal/config"
	"batch-health/internal/ingest"
	"batch-health/internal/logging"
	"batch-health/internal/models"
	"batch-health/internal/render"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	verbose    bool
	chartsFile string
	input      string
	rule       string
	title      string
	out        string
	deltas     bool
	width      int
	height     int

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "bhchart",
		Short: "Classify weekly Batch Health sheets into healthy, watch and risk zones",
		Long: `bhchart reads a CSV with a category column and two weekly percentage
columns, classifies every row with a named rule and either prints the
result as JSON or renders the grouped comparison chart as PNG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if opts.verbose {
				level = "debug"
			}
			var err error
			opts.logger, err = logging.New(level)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&opts.chartsFile, "config", "", "charts file with extra rules (YAML)")

	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the zone report for a CSV as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := buildReport(opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the last week / this week chart for a CSV as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := buildReport(opts)
			if err != nil {
				return err
			}
			f, err := os.Create(opts.out)
			if err != nil {
				return err
			}
			if err := writeChart(f, report, opts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			opts.logger.Info("chart written",
				zap.String("path", opts.out),
				zap.Int("healthy", report.Summary.Healthy),
				zap.Int("watch", report.Summary.Watch),
				zap.Int("risk", report.Summary.Risk),
			)
			return nil
		},
	}

	for _, c := range []*cobra.Command{classifyCmd, renderCmd} {
		c.Flags().StringVarP(&opts.input, "input", "i", "", "CSV file")
		c.Flags().StringVarP(&opts.rule, "rule", "r", "bh-below-10", "rule name")
		c.Flags().StringVar(&opts.title, "title", "", "chart title (defaults to the rule title)")
		_ = c.MarkFlagRequired("input")
	}
	renderCmd.Flags().StringVarP(&opts.out, "out", "o", "chart.png", "output PNG path")
	renderCmd.Flags().BoolVar(&opts.deltas, "deltas", false, "label this week's bars with the change")
	renderCmd.Flags().IntVar(&opts.width, "width", 0, "image width in pixels")
	renderCmd.Flags().IntVar(&opts.height, "height", 0, "image height in pixels")

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "List the available rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range config.RuleNames(rules) {
				rc := rules[name]
				fmt.Fprintf(w, "%-24s %-10s %-18s %s\n", name, rc.Strategy, rc.Direction, rc.Title)
			}
			return nil
		},
	}

	root.AddCommand(classifyCmd, renderCmd, rulesCmd)
	return root
}

func loadRules(opts *options) (map[string]config.RuleConfig, error) {
	rules := config.DefaultRules()
	if opts.chartsFile == "" {
		return rules, nil
	}
	extra, err := config.LoadRules(opts.chartsFile)
	if err != nil {
		return nil, err
	}
	for name, rc := range extra {
		rules[name] = rc
	}
	return rules, nil
}

func buildReport(opts *options) (models.Report, error) {
	rules, err := loadRules(opts)
	if err != nil {
		return models.Report{}, err
	}
	rc, rule, err := config.Config{Rules: rules}.Rule(opts.rule)
	if err != nil {
		return models.Report{}, err
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return models.Report{}, err
	}
	defer f.Close()

	points, err := ingest.ReadCSV(f, rc.Columns)
	if err != nil {
		return models.Report{}, fmt.Errorf("%s: %w", opts.input, err)
	}
	opts.logger.Debug("sheet parsed", zap.String("input", opts.input), zap.Int("rows", len(points)))

	title := opts.title
	if title == "" {
		title = rc.Title
	}
	return analytics.NewAnalyzer(0).Analyze(title, opts.rule, rule, points)
}

func writeChart(w io.Writer, report models.Report, opts *options) error {
	return render.RenderComparison(w, report.Title, report.Results, render.Options{
		Width:      opts.width,
		Height:     opts.height,
		ShowDeltas: opts.deltas,
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
