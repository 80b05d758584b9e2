package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"example.com/backstage/tools/loadtest/internal/mockservice"
)

var mockserverCmd = &cobra.Command{
	Use:   "mockserver",
	Short: "Serve an in-memory stand-in for the device service",
	Long: `Serves the three device service endpoints the load-test tooling
uses, backed by in-memory state. Useful for dry runs of the provision
and replay commands without a real backend.`,
	Run: func(cmd *cobra.Command, args []string) {
		viper.BindPFlags(cmd.Flags())

		app := mockservice.NewApp(viper.GetString("host"), viper.GetInt("port"))
		if err := app.Start(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	mockserverCmd.Flags().String("host", "0.0.0.0", "Host to bind the mock service to")
	mockserverCmd.Flags().Int("port", 8091, "Port to bind the mock service to")

	rootCmd.AddCommand(mockserverCmd)
}
