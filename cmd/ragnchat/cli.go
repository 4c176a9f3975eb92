package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/services"
)

// openFunc builds the service registry. Tests replace it with fakes.
type openFunc func(ctx context.Context, cfg *config.Config, logger *logging.Logger) (services.Registry, io.Closer, error)

func openServices(ctx context.Context, cfg *config.Config, logger *logging.Logger) (services.Registry, io.Closer, error) {
	set, err := services.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return set, set, nil
}

type cli struct {
	root *cobra.Command

	configPath string
	jsonOut    bool
	verbose    bool

	open       openFunc
	loadConfig func(path string) (*config.Config, error)
}

func newCLI() *cli {
	c := &cli{
		open:       openServices,
		loadConfig: config.LoadWithFile,
	}

	c.root = &cobra.Command{
		Use:   "ragnchat",
		Short: "Chat with GitHub repositories",
		Long: `ragnchat ingests the files of a GitHub repository into a vector store
and answers questions about it with retrieval-augmented generation.

Configuration is read from ~/.config/ragnchat/config.yaml (override with
--config or RAGNCHAT_CONFIG) and environment variables such as
OPENAI_API_KEY and GITHUB_TOKEN.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := c.root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file path")
	flags.BoolVar(&c.jsonOut, "json", false, "print results as JSON")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log pipeline activity to stderr")

	c.root.AddCommand(
		c.pingCmd(),
		c.chatCmd(),
		c.repoListCmd(),
		c.repoVectorizeCmd(),
		c.repoDeleteCmd(),
		c.interactiveCmd(),
	)
	return c
}

// withServices loads configuration, opens the pipelines and runs fn.
func (c *cli) withServices(cmd *cobra.Command, fn func(ctx context.Context, reg services.Registry) error) error {
	cfg, err := c.loadConfig(c.configPath)
	if err != nil {
		return err
	}

	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, closer, err := c.open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	return fn(ctx, reg)
}

// newLogger is silent unless --verbose is set. Logs go to stderr; stdout
// carries command output.
func (c *cli) newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !c.verbose {
		return logging.NewNop(), nil
	}
	lc, err := verboseLogConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(lc, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func verboseLogConfig(cfg *config.Config) (*logging.Config, error) {
	lc, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	lc.Format = "console"
	lc.Output = logging.OutputConfig{Stderr: true}
	return lc, nil
}
