package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List permanently failed executions",
	Long:  `Inspect executions the provider gave up on after exhausting their retry budget, or that failed with a permanent error.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewJobClient(viper.GetString("url"), viper.GetString("token"))

		limit, _ := cmd.Flags().GetInt("limit")

		executions, err := client.ListFailed(limit)
		if err != nil {
			cmd.Printf("Error fetching failed executions: %s\n", err)
			os.Exit(1)
		}

		if len(executions) == 0 {
			cmd.Println("No failed executions found.")
			return
		}

		// Print table
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tTYPE\tRETRIES\tFAILED AT\tERROR")
		for _, e := range executions {
			failedAt := ""
			if e.CompletedAt != nil {
				failedAt = e.CompletedAt.Format(time.RFC3339)
			}
			errMsg := ""
			if e.Error != nil {
				// Truncate long error messages for the table view
				errMsg = *e.Error
				if len(errMsg) > 50 {
					errMsg = errMsg[:47] + "..."
				}
			}

			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				e.JobID,
				e.JobType,
				e.RetryCount,
				failedAt,
				errMsg,
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(failedCmd)

	failedCmd.Flags().IntP("limit", "l", 20, "Number of failed executions to list")
}
