package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/maastricht-university/edaic-vafn/config"
	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/orchestrator"
	"github.com/maastricht-university/edaic-vafn/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EDAIC")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "edaic",
		Short:        "Multimodal depression classification on E-DAIC-WOZ",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	pf.String("log-level", "", "overrides pipeline.log_level")
	pf.String("data", "", "overrides paths.data")
	pf.String("outputs", "", "overrides paths.outputs")
	pf.String("dataset", "", "overrides experiment.dataset")
	pf.String("eval-dataset", "", "overrides experiment.eval_dataset")
	for _, name := range []string{"config", "log-level", "data", "outputs", "dataset", "eval-dataset"} {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), pf.Lookup(name))
	}

	root.AddCommand(newTrainCmd(v), newEvaluateCmd(v), newRegistryCmd())
	return root
}

func setup(v *viper.Viper) (*orchestrator.Pipeline, *logrus.Logger, error) {
	conf, err := cfg.Load(v.GetString("config"))
	if err != nil {
		return nil, nil, err
	}
	conf.Override(v)

	log := logrus.New()
	lvl, err := logrus.ParseLevel(conf.Pipeline.LogLvl)
	if err != nil {
		return nil, nil, err
	}
	log.SetLevel(lvl)
	if conf.Pipeline.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	p, err := orchestrator.NewPipeline(conf, dataset.NewFileSource(conf.Paths.Data), log)
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{
		"pipeline": conf.Pipeline.Name,
		"version":  conf.Pipeline.Version,
		"data":     conf.Paths.Data,
	}).Info("pipeline ready")
	return p, log, nil
}

func newTrainCmd(v *viper.Viper) *cobra.Command {
	var split, evalSplit string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on a split, then evaluate the trained model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, log, err := setup(v)
			if err != nil {
				return err
			}
			sum, err := p.Train(cmd.Context(), split)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum.Dir)
			if evalSplit == "" {
				return nil
			}
			ev, err := p.Evaluate(cmd.Context(), evalSplit)
			if err != nil {
				return err
			}
			log.WithField("train_run", sum.RunID).Debug("evaluated trained model")
			fmt.Fprintln(cmd.OutOrStdout(), ev.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&split, "split", "train", "sessions to train on")
	cmd.Flags().StringVar(&evalSplit, "eval-split", "dev", "sessions to evaluate on after training; empty skips")
	return cmd
}

func newEvaluateCmd(v *viper.Viper) *cobra.Command {
	var split string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate per window and per session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := setup(v)
			if err != nil {
				return err
			}
			sum, err := p.Evaluate(cmd.Context(), split)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&split, "split", "test", "sessions to evaluate")
	return cmd
}

func newRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "List the registered keys of every table",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, table := range registry.Tables() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", table)
				for _, k := range registry.Keys(table) {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", k)
				}
			}
		},
	}
}
