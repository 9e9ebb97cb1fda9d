package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered job types",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewJobClient(viper.GetString("url"), viper.GetString("token"))

		types, err := client.ListTypes()
		if err != nil {
			cmd.Printf("Error fetching job types: %s\n", err)
			os.Exit(1)
		}

		// Print table
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TYPE\tENDPOINT\tRETRIES\tTIMEOUT\tDESCRIPTION")
		for _, t := range types {
			timeout := time.Duration(t.TimeoutSecs) * time.Second

			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				t.Type,
				t.Endpoint,
				t.Retries,
				timeout,
				t.Description,
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
