package cli

import (
	"encoding/json"

	"github.com/amine-amaach/simulators/uaMonitor/internal/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewConfigCommand prints the effective configuration after defaults, file
// and environment overrides are applied.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.Out = cmd.ErrOrStderr()
			cfg, err := config.GetConfigs(rootOpts.ConfigPath, logger)
			if err != nil {
				return err
			}
			cfg.MqttSink.Password = redact(cfg.MqttSink.Password)
			for i := range cfg.Prometheus.Users {
				cfg.Prometheus.Users[i].Password = redact(cfg.Prometheus.Users[i].Password)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return errors.Wrap(enc.Encode(cfg), "encode configs")
		},
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
