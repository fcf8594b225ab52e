// Package cmd implements the dash2hlsctl subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cliViper = viper.New()

var rootCmd = &cobra.Command{
	Use:   "dash2hlsctl",
	Short: "Control client for the dash2hls gateway",
	Long: `dash2hlsctl talks to a running dash2hls gateway's REST control
plane to create, list, inspect, and remove stream sessions.`,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "gateway base URL")
	cliViper.SetEnvPrefix("DASH2HLSCTL")
	cliViper.AutomaticEnv()
	cliViper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	cliViper.SetDefault("server", "http://localhost:8080")
}

func serverURL(cmd *cobra.Command) string {
	if v, _ := cmd.Flags().GetString("server"); v != "" && cmd.Flags().Changed("server") {
		return v
	}
	return cliViper.GetString("server")
}

// Execute runs the root command and returns the process exit code per
// the gateway's CLI contract (0 success, 1 bad input, 2 server
// unreachable, 3 stream not found).
func Execute() int {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCodeFor(err)
	}
	return exitOK
}
