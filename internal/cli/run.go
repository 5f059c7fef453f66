package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/config"
	"github.com/amine-amaach/simulators/uaMonitor/internal/log"
	"github.com/amine-amaach/simulators/uaMonitor/internal/services"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the simulators and monitor them until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLog := logrus.New()
			cfg, err := config.GetConfigs(rootOpts.ConfigPath, bootLog)
			if err != nil {
				return err
			}
			logger := log.NewLogger(cfg.LoggerConfig.Level, cfg.LoggerConfig.Format, cfg.LoggerConfig.DisableTimestamp)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runApp(ctx, cfg, logger)
		},
	}
}

// runApp wires the sinks, the metrics endpoint and the monitored items and
// blocks until ctx is done.
func runApp(ctx context.Context, cfg config.Cfg, logger logrus.FieldLogger) error {
	sinks := services.MultiSink{services.LogSink{Log: logger}}
	if cfg.MqttSink.Enabled {
		mqttSink, err := services.NewMqttSinkSvc(ctx, cfg.MqttSink, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, mqttSink)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sinks.Close(closeCtx)
	}()

	a, err := newApp(ctx, cfg, logger, sinks)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Prometheus.Enabled {
		handler, err := metricsHandler(a.promReg, cfg.Prometheus.Users)
		if err != nil {
			a.close()
			return errors.Wrap(err, "metrics endpoint")
		}
		srv = &http.Server{Addr: cfg.Prometheus.Address, Handler: handler, ReadHeaderTimeout: shutdownTimeout}
		go func() {
			logger.Infof("Serving metrics on %s/metrics 🔔\n", cfg.Prometheus.Address)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Errorln("Metrics endpoint stopped ⛔")
			}
		}()
	}

	logger.WithField("items", len(a.items)).Infoln("Monitoring started ✅")
	a.run(ctx)

	logger.Infoln("Shutting down.. 🔔")
	a.close()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warnln("Metrics endpoint shutdown incomplete ⛔")
		}
	}
	logger.Infoln("Shutdown complete ✅")
	return nil
}
