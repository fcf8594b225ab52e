// Command dash2hlsctl is a thin REST client for the dash2hls gateway's
// control plane: create, list, get, and remove stream sessions.
package main

import (
	"os"

	"dash2hls/cmd/dash2hlsctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
