package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/Axway/agent-sdk/pkg/cmd/properties"
	"github.com/Axway/agent-sdk/pkg/util/log"
	"github.com/spf13/cobra"

	"github.com/edpaget/kongfig/pkg/config"
	"github.com/edpaget/kongfig/pkg/kong"
	"github.com/edpaget/kongfig/pkg/state"
)

// RootCmd is the root
var RootCmd = &cobra.Command{
	Use:          "kongstate",
	Short:        "Read the canonical configuration snapshot of a Kong Gateway",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.ParseProperties(rootProps)
		if err := cfg.ValidateCfg(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

var rootProps properties.Properties

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Bind the config properties to command flags
	rootProps = properties.NewProperties(RootCmd)
	config.AddKongProperties(rootProps)
}

func run(ctx context.Context, cfg *config.KongStateConfig, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.NewFieldLogger().WithComponent("run").WithPackage("cmd")

	client, err := kong.NewKongClient(&http.Client{}, &cfg.Admin)
	if err != nil {
		return err
	}

	if cfg.State.PluginSchemas {
		schemas, err := client.FetchPluginSchemas(ctx)
		if err != nil {
			logger.WithError(err).Error("failed to read plugin schemas")
			return err
		}
		return write(out, cfg.State.Output, schemas)
	}

	doc, err := state.LoadDesiredState(cfg.State.DesiredStatePath)
	if err != nil {
		logger.WithError(err).Error("failed to load desired state document")
		return err
	}

	snapshot, err := state.Read(ctx, client, kong.DefaultCredentials, doc)
	if err != nil {
		logger.WithError(err).Error("failed to read gateway state")
		return err
	}
	return write(out, cfg.State.Output, snapshot)
}
