package httpapi

import "dash2hls/internal/session"

// streamResponse is the REST-facing view of a session.Info.
type streamResponse struct {
	StreamID    string `json:"stream_id"`
	MPDURL      string `json:"mpd_url"`
	Status      string `json:"status"`
	IsLive      bool   `json:"is_live"`
	Label       string `json:"label,omitempty"`
	Error       string `json:"error,omitempty"`
	Video       *trackResponse `json:"video,omitempty"`
	Audio       *trackResponse `json:"audio,omitempty"`
	HLSURL      string `json:"hls_url"`
}

type trackResponse struct {
	RepresentationID string `json:"representation_id"`
	Bandwidth        int    `json:"bandwidth"`
	Codecs           string `json:"codecs,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	LastSequence     int64  `json:"last_sequence"`
}

func toResponse(info session.Info) streamResponse {
	resp := streamResponse{
		StreamID: info.ID,
		MPDURL:   info.MPDURL,
		Status:   string(info.Status),
		IsLive:   info.IsLive,
		Label:    info.Label,
		Error:    info.Error,
		HLSURL:   "/hls/" + info.ID + "/master.m3u8",
	}
	if info.VideoRepID != "" {
		resp.Video = &trackResponse{
			RepresentationID: info.VideoRepID,
			Bandwidth:        info.VideoBandwidth,
			Codecs:           info.VideoCodecs,
			Width:            info.VideoWidth,
			Height:           info.VideoHeight,
			LastSequence:     info.LastVideoSequence,
		}
	}
	if info.AudioRepID != "" {
		resp.Audio = &trackResponse{
			RepresentationID: info.AudioRepID,
			Bandwidth:        info.AudioBandwidth,
			Codecs:           info.AudioCodecs,
			LastSequence:     info.LastAudioSequence,
		}
	}
	return resp
}

func toResponses(infos []session.Info) []streamResponse {
	out := make([]streamResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, toResponse(info))
	}
	return out
}
