package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/report"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// printMarkdown renders md for the terminal, or writes it raw when style is
// "raw".
func printMarkdown(cmd *cobra.Command, md, style string) error {
	if style == "raw" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	out, err := report.Render(md, style, 100)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func newImportanceCmd(a *app) *cobra.Command {
	var (
		data   string
		target string
		chart  string
		style  string
		asJSON bool
		ref    modelRef
	)
	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Score transformed features by mutual information with a target",
		Example: `  featurekit importance --model churn.gob --data valid.csv --target churned
  featurekit importance --model churn.gob --data valid.csv --target churned --chart importance.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if target == "" {
				target = a.file.Data.Target
			}
			if target == "" {
				return errors.NewValidationError("target", "a target column is required", target)
			}
			p, err := ref.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			in, err := readFrame(cmd, data, schemaKinds(p))
			if err != nil {
				return err
			}
			scores, err := p.FeatureImportance(in, target)
			if err != nil {
				return err
			}
			if chart != "" {
				if err := report.SaveImportanceChart(chart, target, scores); err != nil {
					return err
				}
				a.logger.Info("chart written", "path", chart)
			}
			if asJSON {
				return writeJSONOutput(cmd, "-", scores)
			}
			return printMarkdown(cmd, report.ImportanceMarkdown(target, scores), style)
		},
	}
	f := cmd.Flags()
	f.StringVar(&data, "data", "", "dataset containing the target")
	f.StringVar(&target, "target", "", "target column (default from config)")
	f.StringVar(&chart, "chart", "", "also write a bar chart (.png, .svg or .pdf)")
	f.StringVar(&style, "style", report.StyleAuto, "markdown style: auto, dark, light, notty or raw")
	f.BoolVar(&asJSON, "json", false, "print scores as JSON")
	ref.addFlags(f)
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newDriftCmd(a *app) *cobra.Command {
	var (
		train   string
		prod    string
		columns []string
		style   string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:     "drift",
		Short:   "Compare numerical distributions of two datasets",
		Example: `  featurekit drift --train train.csv --prod last_week.csv --columns age,income`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds := columnKinds(a.file.Data.Numerical, a.file.Data.Categorical)
			tr, err := readFrame(cmd, train, kinds)
			if err != nil {
				return err
			}
			pr, err := readFrame(cmd, prod, kinds)
			if err != nil {
				return err
			}
			results, err := tabular.DetectDrift(tr, pr, columns)
			if err != nil {
				return err
			}
			drifted := 0
			for _, r := range results {
				if r.Drifted {
					drifted++
				}
			}
			a.logger.Info("drift checked", "features", len(results), "drifted", drifted)
			if asJSON {
				return writeJSONOutput(cmd, "-", results)
			}
			return printMarkdown(cmd, report.DriftMarkdown(results), style)
		},
	}
	f := cmd.Flags()
	f.StringVar(&train, "train", "", "reference dataset")
	f.StringVar(&prod, "prod", "", "dataset to compare")
	f.StringSliceVar(&columns, "columns", nil, "columns to compare (default: all numerical columns of --train)")
	f.StringVar(&style, "style", report.StyleAuto, "markdown style: auto, dark, light, notty or raw")
	f.BoolVar(&asJSON, "json", false, "print results as JSON")
	_ = cmd.MarkFlagRequired("train")
	_ = cmd.MarkFlagRequired("prod")
	return cmd
}

func newSplitCmd(a *app) *cobra.Command {
	var (
		data     string
		target   string
		testSize float64
		seed     uint64
		stratify bool
		trainOut string
		testOut  string
	)
	cmd := &cobra.Command{
		Use:     "split",
		Short:   "Split a dataset into train and test files",
		Example: `  featurekit split --data all.csv --target churned --train-out train.csv --test-out test.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := a.file.SplitOptions()
			flags := cmd.Flags()
			if flags.Changed("test-size") {
				opts.TestSize = testSize
			}
			if flags.Changed("seed") {
				opts.Seed = seed
			}
			if flags.Changed("stratify") {
				opts.Stratify = stratify
			}
			if target == "" {
				target = a.file.Data.Target
			}

			in, err := readFrame(cmd, data, columnKinds(a.file.Data.Numerical, a.file.Data.Categorical))
			if err != nil {
				return err
			}
			tr, te, err := tabular.TrainTestSplit(in, target, opts)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, trainOut, "", tr); err != nil {
				return err
			}
			if err := writeOutput(cmd, testOut, "", te); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "train: %d rows, test: %d rows\n", tr.NRows(), te.NRows())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&data, "data", "", "dataset to split")
	f.StringVar(&target, "target", "", "target column used for stratification")
	f.Float64Var(&testSize, "test-size", 0.2, "fraction of rows in the test set")
	f.Uint64Var(&seed, "seed", 42, "shuffle seed")
	f.BoolVar(&stratify, "stratify", true, "keep class proportions of the target")
	f.StringVar(&trainOut, "train-out", "", "train output file")
	f.StringVar(&testOut, "test-out", "", "test output file")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("train-out")
	_ = cmd.MarkFlagRequired("test-out")
	return cmd
}
