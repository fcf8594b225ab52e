package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "get",
		Short: "Get information about a specific stream",
		RunE:  runGet,
	}
	c.Flags().String("stream-id", "", "stream id to check (required)")
	c.MarkFlagRequired("stream-id")
	rootCmd.AddCommand(c)
}

func runGet(cmd *cobra.Command, args []string) error {
	streamID, _ := cmd.Flags().GetString("stream-id")
	client := newAPIClient(serverURL(cmd))
	resp, err := client.do("GET", "/streams/"+streamID, nil)
	if err != nil {
		return err
	}
	var out streamView
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}
	printStream(cmd.OutOrStdout(), out, serverURL(cmd))
	return nil
}
