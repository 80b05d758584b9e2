package cmd

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"example.com/backstage/tools/loadtest/provisioner"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create an organization and a batch of synthetic devices",
	Long: `Creates (or reuses) an organization, then registers the requested
number of devices against the device service. The identifiers of every
successfully created device are written to the output file, which the
replay command consumes.`,
	Run: func(cmd *cobra.Command, args []string) {
		viper.BindPFlags(cmd.Flags())

		config := &provisioner.Config{
			BaseURL:    viper.GetString("url"),
			Count:      viper.GetInt("num"),
			OrgID:      uint(viper.GetUint64("org")),
			OrgName:    viper.GetString("org-name"),
			OutputPath: viper.GetString("output"),
			Pause:      viper.GetDuration("pause"),
		}

		log.Infof("Setting up %d devices for load testing...", config.Count)

		p, err := provisioner.NewProvisioner(config)
		if err != nil {
			log.Fatal(err)
		}

		if err := p.Run(); err != nil {
			log.Fatal(err)
		}

		log.Info("Setup complete! You can now run the replay command.")
	},
}

func init() {
	provisionCmd.Flags().String("url", "http://localhost:8091", "Base URL of the device service")
	provisionCmd.Flags().Int("num", 1000, "Number of devices to create")
	provisionCmd.Flags().Uint64("org", 0, "Organization ID to use (if not provided, a new org will be created)")
	provisionCmd.Flags().String("org-name", "", "Name for the created organization")
	provisionCmd.Flags().String("output", "devices.json", "Output file to save device data")
	provisionCmd.Flags().Duration("pause", 100*time.Millisecond, "Pause between device creation requests")

	rootCmd.AddCommand(provisionCmd)
}
