package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a new stream from a DASH manifest",
		RunE:  runCreate,
	}
	c.Flags().String("mpd-url", "", "URL of the DASH MPD manifest (required)")
	c.Flags().String("key", "", "decryption key (hex string)")
	c.Flags().String("kid", "", "key id (hex string)")
	c.Flags().StringSlice("key-map", nil, "KID:KEY pairs (hex), repeatable")
	c.Flags().String("representation-id", "", "force a specific representation id (its kind is inferred and becomes the only selected variant)")
	c.Flags().String("label", "", "human-friendly label for the stream")
	c.Flags().Float64("poll-interval", 0, "seconds between MPD refreshes (live)")
	c.Flags().Int("window-size", 0, "segments kept in the live playlist")
	c.Flags().Int("history-size", 0, "processed-segment history size")
	c.Flags().String("mp4decrypt-path", "", "path to the mp4decrypt executable")
	c.Flags().StringSlice("header", nil, "additional HTTP header as Name:Value, repeatable")
	c.MarkFlagRequired("mpd-url")
	rootCmd.AddCommand(c)
}

func runCreate(cmd *cobra.Command, args []string) error {
	mpdURL, _ := cmd.Flags().GetString("mpd-url")
	key, _ := cmd.Flags().GetString("key")
	kid, _ := cmd.Flags().GetString("kid")
	keyMapEntries, _ := cmd.Flags().GetStringSlice("key-map")
	representationID, _ := cmd.Flags().GetString("representation-id")
	label, _ := cmd.Flags().GetString("label")
	pollInterval, _ := cmd.Flags().GetFloat64("poll-interval")
	windowSize, _ := cmd.Flags().GetInt("window-size")
	historySize, _ := cmd.Flags().GetInt("history-size")
	mp4decryptPath, _ := cmd.Flags().GetString("mp4decrypt-path")
	headerEntries, _ := cmd.Flags().GetStringSlice("header")

	payload := map[string]any{"mpd_url": mpdURL}
	if key != "" {
		payload["key"] = key
	}
	if kid != "" {
		payload["kid"] = kid
	}
	if len(keyMapEntries) > 0 {
		keyMap := make(map[string]string, len(keyMapEntries))
		for _, entry := range keyMapEntries {
			k, v, ok := strings.Cut(entry, ":")
			if !ok {
				return badInput("--key-map entries must be in the form KID:KEY, got %q", entry)
			}
			keyMap[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		payload["key_map"] = keyMap
	}
	if representationID != "" {
		payload["representation_id"] = representationID
	}
	if label != "" {
		payload["label"] = label
	}
	if pollInterval > 0 {
		payload["poll_interval"] = pollInterval
	}
	if windowSize > 0 {
		payload["window_size"] = windowSize
	}
	if historySize > 0 {
		payload["history_size"] = historySize
	}
	if mp4decryptPath != "" {
		payload["mp4decrypt_path"] = mp4decryptPath
	}
	if len(headerEntries) > 0 {
		headers := make(map[string]string, len(headerEntries))
		for _, entry := range headerEntries {
			name, value, ok := strings.Cut(entry, ":")
			if !ok {
				return badInput("--header entries must be in the form Name:Value, got %q", entry)
			}
			headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		payload["headers"] = headers
	}

	client := newAPIClient(serverURL(cmd))
	resp, err := client.do("POST", "/streams", payload)
	if err != nil {
		return err
	}
	var out createResponse
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Stream created successfully!")
	fmt.Fprintln(cmd.OutOrStdout(), "Stream ID:", out.StreamID)
	fmt.Fprintln(cmd.OutOrStdout(), "HLS URL:", serverURL(cmd)+out.HLSURL)
	fmt.Fprintln(cmd.OutOrStdout(), "Status:", out.Status)
	return nil
}
