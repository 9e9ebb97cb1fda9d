package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "Jobctl is a command line tool for operating the jobrelay service",
	Long: `jobctl is the command-line interface for the JobRelay job dispatch service.

JobRelay hands background jobs to a push-delivery provider and tracks every
execution in Postgres. The provider delivers each job back to the service
over HTTP, retrying until the worker endpoint acknowledges it:

  enqueue → execution record (pending) → provider → worker endpoint
          → processing → completed | failed

Common workflows:

  Enqueue a job:
    jobctl enqueue --type send-email --payload '{"to":"a@b.com","template":"welcome","data":{}}'

  Register a recurring job:
    jobctl schedule --type generate-report --cron "0 6 1 * *" --payload '{...}'

  Check an execution:
    jobctl status <job-id>

  List recent executions of a type:
    jobctl list --type send-email

  Inspect permanently failed executions:
    jobctl failed

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    JOBRELAY_URL      Ops API endpoint (default: http://localhost:6262)
    JOBRELAY_TOKEN    Ops API token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".jobctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".jobctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "JOBRELAY_VARNAME"
	viper.SetEnvPrefix("JOBRELAY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jobctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6262", "JobRelay ops API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Ops API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
