package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"example.com/backstage/tools/loadtest/internal/metrics"
	"example.com/backstage/tools/loadtest/replayer"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay randomized device telemetry against the ingestion endpoint",
	Long: `Starts a number of simulated users. Each one picks a random device
from the artifact file written by the provision command and keeps
sending randomized telemetry messages for it on a jittered cadence.

Send outcomes are exposed as Prometheus metrics on --metrics-addr.`,
	Run: func(cmd *cobra.Command, args []string) {
		viper.BindPFlags(cmd.Flags())

		config := &replayer.Config{
			ArtifactPath: viper.GetString("artifact"),
			BaseURL:      viper.GetString("url"),
			Users:        viper.GetInt("users"),
			WaitMin:      viper.GetDuration("wait-min"),
			WaitMax:      viper.GetDuration("wait-max"),
			Duration:     viper.GetDuration("duration"),
			MetricsAddr:  viper.GetString("metrics-addr"),
		}

		metrics.Register()

		harness, err := replayer.NewHarness(config)
		if err != nil {
			log.Fatal(err)
		}

		go func() {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info("Shutting down...")
			harness.Stop()
		}()

		if err := harness.Start(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	replayCmd.Flags().String("url", "http://localhost:8091", "Base URL of the device service")
	replayCmd.Flags().String("artifact", "devices.json", "Device records file written by the provision command")
	replayCmd.Flags().Int("users", 50, "Number of simulated users")
	replayCmd.Flags().Duration("wait-min", 100*time.Millisecond, "Minimum wait between sends")
	replayCmd.Flags().Duration("wait-max", 200*time.Millisecond, "Maximum wait between sends")
	replayCmd.Flags().Duration("duration", 0, "How long to run (0 means until interrupted)")
	replayCmd.Flags().String("metrics-addr", ":9100", "Address to serve Prometheus metrics on (empty disables)")

	rootCmd.AddCommand(replayCmd)
}
