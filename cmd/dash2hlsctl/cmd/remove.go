package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "remove",
		Short: "Remove a stream",
		RunE:  runRemove,
	}
	c.Flags().String("stream-id", "", "stream id to remove (required)")
	c.MarkFlagRequired("stream-id")
	rootCmd.AddCommand(c)
}

func runRemove(cmd *cobra.Command, args []string) error {
	streamID, _ := cmd.Flags().GetString("stream-id")
	client := newAPIClient(serverURL(cmd))
	resp, err := client.do("DELETE", "/streams/"+streamID, nil)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stream %s removed successfully!\n", streamID)
	return nil
}
