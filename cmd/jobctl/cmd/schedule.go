package cmd

import (
	"encoding/json"

	"jobrelay/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Register a recurring job with the delivery provider",
	Long: `Register a cron schedule with the push-delivery provider. The provider fires
the job on the given cron expression; an execution record is created per
firing, not at registration time.

Example:
  jobctl schedule --type generate-report --cron "0 6 1 * *" --payload '{"report_type":"usage-summary",...}'`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		jobType, _ := flags.GetString("type")
		cronExpr, _ := flags.GetString("cron")
		payload, _ := flags.GetString("payload")
		userID, _ := flags.GetString("user")
		orgID, _ := flags.GetString("org")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the JOBRELAY_TOKEN environment variable")
			return
		}

		if jobType == "" {
			cmd.Println("Error: --type is required")
			return
		}

		if cronExpr == "" {
			cmd.Println("Error: --cron is required")
			return
		}

		if payload == "" {
			cmd.Println("Error: --payload is required")
			return
		}

		if !json.Valid([]byte(payload)) {
			cmd.Println("Error: --payload must be valid JSON")
			return
		}

		client := NewJobClient(url, token)
		req := api.ScheduleRequest{
			Type:           jobType,
			Cron:           cronExpr,
			Payload:        json.RawMessage(payload),
			UserID:         userID,
			OrganizationID: orgID,
		}

		result, err := client.CreateSchedule(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Schedule created!\nSchedule ID: %s\n", result.ScheduleID)
	},
}

func init() {
	flags := scheduleCmd.Flags()
	flags.StringP("type", "T", "", "Job type to schedule (required)")
	flags.StringP("cron", "c", "", "Cron expression, five fields (required)")
	flags.StringP("payload", "p", "", "Job payload as a JSON object (required)")
	flags.String("user", "", "User ID to attribute the job to (optional)")
	flags.String("org", "", "Organization ID to attribute the job to (optional)")

	rootCmd.AddCommand(scheduleCmd)
}
