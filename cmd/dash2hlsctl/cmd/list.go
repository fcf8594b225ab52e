package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "list",
		Short: "List all active streams",
		RunE:  runList,
	}
	rootCmd.AddCommand(c)
}

func runList(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL(cmd))
	resp, err := client.do("GET", "/streams", nil)
	if err != nil {
		return err
	}
	var out listResponse
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(out.Streams) == 0 {
		fmt.Fprintln(w, "No active streams")
		return nil
	}

	fmt.Fprintf(w, "Found %d stream(s):\n\n", len(out.Streams))
	for _, s := range out.Streams {
		printStream(w, s, serverURL(cmd))
	}
	return nil
}
