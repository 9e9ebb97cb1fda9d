package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent executions of a job type",
	Run: func(cmd *cobra.Command, args []string) {
		jobType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		if jobType == "" {
			cmd.Println("Error: --type is required")
			return
		}

		client := NewJobClient(viper.GetString("url"), viper.GetString("token"))

		executions, err := client.ListExecutions(jobType, limit)
		if err != nil {
			cmd.Printf("Error fetching executions: %s\n", err)
			os.Exit(1)
		}

		if len(executions) == 0 {
			cmd.Printf("No executions found for type %s.\n", jobType)
			return
		}

		// Print table
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tSTATUS\tRETRIES\tCREATED\tCOMPLETED")
		for _, e := range executions {
			completedAt := ""
			if e.CompletedAt != nil {
				completedAt = e.CompletedAt.Format(time.RFC3339)
			}

			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				e.JobID,
				e.Status,
				e.RetryCount,
				e.CreatedAt.Format(time.RFC3339),
				completedAt,
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("type", "T", "", "Job type to list executions for (required)")
	listCmd.Flags().IntP("limit", "l", 20, "Number of executions to list")
}
