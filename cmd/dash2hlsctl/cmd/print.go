package cmd

import (
	"fmt"
	"io"
)

func printStream(w io.Writer, s streamView, server string) {
	fmt.Fprintln(w, "Stream ID:", s.StreamID)
	fmt.Fprintln(w, "MPD URL:", s.MPDURL)
	fmt.Fprintln(w, "Status:", s.Status)
	fmt.Fprintln(w, "HLS URL:", server+s.HLSURL)
	fmt.Fprintln(w, "Live:", s.IsLive)
	if s.Video != nil {
		fmt.Fprintln(w, "Video representation:", s.Video.RepresentationID)
		fmt.Fprintln(w, "Video bandwidth:", s.Video.Bandwidth, "bps")
		if s.Video.Codecs != "" {
			fmt.Fprintln(w, "Video codecs:", s.Video.Codecs)
		}
		if s.Video.Width > 0 && s.Video.Height > 0 {
			fmt.Fprintf(w, "Video resolution: %dx%d\n", s.Video.Width, s.Video.Height)
		}
		fmt.Fprintln(w, "Video last sequence:", s.Video.LastSequence)
	}
	if s.Audio != nil {
		fmt.Fprintln(w, "Audio representation:", s.Audio.RepresentationID)
		fmt.Fprintln(w, "Audio bandwidth:", s.Audio.Bandwidth, "bps")
		if s.Audio.Codecs != "" {
			fmt.Fprintln(w, "Audio codecs:", s.Audio.Codecs)
		}
		fmt.Fprintln(w, "Audio last sequence:", s.Audio.LastSequence)
	}
	if s.Label != "" {
		fmt.Fprintln(w, "Label:", s.Label)
	}
	if s.Error != "" {
		fmt.Fprintln(w, "Error:", s.Error)
	}
	fmt.Fprintln(w)
}
