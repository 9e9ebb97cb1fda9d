package cmd

import (
	"encoding/json"

	"jobrelay/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue a job with the delivery provider",
	Long: `Enqueue a single job. The service records a pending execution and hands the
job to the push-delivery provider, which delivers it back to the matching
worker endpoint.

Example:
  jobctl enqueue --type send-email --payload '{"to":"user@example.com","template":"welcome","data":{}}'
  jobctl enqueue --type process-webhook --payload '{...}' --idempotency-key "stripe:evt_123" --retries 7`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		jobType, _ := flags.GetString("type")
		payload, _ := flags.GetString("payload")
		userID, _ := flags.GetString("user")
		orgID, _ := flags.GetString("org")
		idempotencyKey, _ := flags.GetString("idempotency-key")
		retries, _ := flags.GetInt("retries")
		delay, _ := flags.GetInt("delay")

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

		if payload == "" {
			cmd.Println("Error: --payload is required")
			return
		}

		if !json.Valid([]byte(payload)) {
			cmd.Println("Error: --payload must be valid JSON")
			return
		}

		client := NewJobClient(url, token)
		req := api.EnqueueRequest{
			Type:           jobType,
			Payload:        json.RawMessage(payload),
			UserID:         userID,
			OrganizationID: orgID,
			IdempotencyKey: idempotencyKey,
			DelaySeconds:   delay,
		}
		// -1 means use the retry budget registered for the type
		if retries >= 0 {
			req.Retries = &retries
		}

		result, err := client.EnqueueJob(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Job enqueued!\nJob ID: %s\n", result.JobID)
	},
}

func init() {
	flags := enqueueCmd.Flags()
	flags.StringP("type", "T", "", "Job type to enqueue (required)")
	flags.StringP("payload", "p", "", "Job payload as a JSON object (required)")
	flags.String("user", "", "User ID to attribute the job to (optional)")
	flags.String("org", "", "Organization ID to attribute the job to (optional)")
	flags.StringP("idempotency-key", "k", "", "Idempotency key derived from a domain identifier (optional)")
	flags.Int("retries", -1, "Override the registered retry budget (optional)")
	flags.Int("delay", 0, "Delay the first delivery attempt by this many seconds (optional)")

	rootCmd.AddCommand(enqueueCmd)
}
