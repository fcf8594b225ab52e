package cmd

// streamTrack mirrors internal/httpapi's trackResponse.
type streamTrack struct {
	RepresentationID string `json:"representation_id"`
	Bandwidth        int    `json:"bandwidth"`
	Codecs           string `json:"codecs"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	LastSequence     int64  `json:"last_sequence"`
}

// streamView mirrors internal/httpapi's streamResponse.
type streamView struct {
	StreamID string       `json:"stream_id"`
	MPDURL   string       `json:"mpd_url"`
	Status   string       `json:"status"`
	IsLive   bool         `json:"is_live"`
	Label    string       `json:"label"`
	Error    string       `json:"error"`
	Video    *streamTrack `json:"video"`
	Audio    *streamTrack `json:"audio"`
	HLSURL   string       `json:"hls_url"`
}

type createResponse struct {
	StreamID string `json:"stream_id"`
	HLSURL   string `json:"hls_url"`
	Status   string `json:"status"`
}

type listResponse struct {
	Streams []streamView `json:"streams"`
}
