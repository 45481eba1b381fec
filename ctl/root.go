package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/config"
	"github.com/DeafMist/comment-sentiment/internal/logger"
)

// storeFlags override the ARTIFACT_* environment for one invocation.
type storeFlags struct {
	store      string
	dir        string
	badgerPath string
	vectorizer string
	classifier string
	timeout    time.Duration
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.store, "store", "", "Artifact store kind (fs or badger)")
	cmd.PersistentFlags().StringVar(&f.dir, "dir", "", "Artifact directory for the fs store")
	cmd.PersistentFlags().StringVar(&f.badgerPath, "badger", "", "Badger database path for the badger store")
	cmd.PersistentFlags().StringVar(&f.vectorizer, "vectorizer", "", "Vectorizer artifact ref")
	cmd.PersistentFlags().StringVar(&f.classifier, "classifier", "", "Classifier artifact ref")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 0, "Artifact load timeout")
}

// resolve merges flags over the environment configuration.
func (f *storeFlags) resolve() (config.Artifacts, error) {
	cfg, err := config.LoadArtifacts()
	if err != nil {
		return config.Artifacts{}, err
	}
	if f.store != "" {
		cfg.Store = f.store
	}
	if f.dir != "" {
		cfg.Dir = f.dir
	}
	if f.badgerPath != "" {
		cfg.BadgerPath = f.badgerPath
	}
	if f.vectorizer != "" {
		cfg.VectorizerRef = f.vectorizer
	}
	if f.classifier != "" {
		cfg.ClassifierRef = f.classifier
	}
	if f.timeout > 0 {
		cfg.LoadTimeout = f.timeout
	}
	return cfg, nil
}

// bind loads the configured pair. The returned close function must be called.
func (f *storeFlags) bind(ctx context.Context) (*artifact.Binder, func() error, error) {
	cfg, err := f.resolve()
	if err != nil {
		return nil, nil, err
	}
	return artifact.Start(ctx, cfg, logger.Discard())
}

func newRootCommand() *cobra.Command {
	flags := &storeFlags{}

	rootCmd := &cobra.Command{
		Use:           "sentimentctl",
		Short:         "Inspect, import and exercise comment sentiment model artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	flags.register(rootCmd)

	rootCmd.AddCommand(newInspectCommand(flags))
	rootCmd.AddCommand(newPredictCommand(flags))
	rootCmd.AddCommand(newImportCommand(flags))
	rootCmd.AddCommand(newRefsCommand(flags))
	rootCmd.AddCommand(newFitVectorizerCommand())

	return rootCmd
}
