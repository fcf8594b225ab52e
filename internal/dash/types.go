// Package dash models MPEG-DASH manifests and resolves them into a flat,
// fetchable list of segments per representation.
package dash

import "encoding/xml"

// MPD is the root element of a DASH manifest.
type MPD struct {
	XMLName                   xml.Name  `xml:"MPD"`
	Type                      string    `xml:"type,attr"`
	MediaPresentationDuration string    `xml:"mediaPresentationDuration,attr"`
	MinimumUpdatePeriod       string    `xml:"minimumUpdatePeriod,attr"`
	AvailabilityStartTime     string    `xml:"availabilityStartTime,attr"`
	BaseURL                   []BaseURL `xml:"BaseURL"`
	Periods                   []Period  `xml:"Period"`
}

// BaseURL is a relative or absolute URL that rebases everything beneath it.
type BaseURL struct {
	Value string `xml:",chardata"`
}

// Period groups adaptation sets that are active over a time range.
type Period struct {
	ID             string          `xml:"id,attr"`
	Start          string          `xml:"start,attr"`
	Duration       string          `xml:"duration,attr"`
	BaseURL        []BaseURL       `xml:"BaseURL"`
	AdaptationSets []AdaptationSet `xml:"AdaptationSet"`
}

// AdaptationSet groups interchangeable representations of one media component.
type AdaptationSet struct {
	ContentType         string              `xml:"contentType,attr"`
	MimeType            string              `xml:"mimeType,attr"`
	Codecs              string              `xml:"codecs,attr"`
	BaseURL             []BaseURL           `xml:"BaseURL"`
	SegmentTemplate     *SegmentTemplate    `xml:"SegmentTemplate"`
	ContentProtection   []ContentProtection `xml:"ContentProtection"`
	Representations     []Representation    `xml:"Representation"`
	DefaultKID          string              `xml:"default_KID,attr"`
}

// Representation is a single encoded quality level of a media component.
type Representation struct {
	ID                string              `xml:"id,attr"`
	Bandwidth         int                 `xml:"bandwidth,attr"`
	Codecs            string              `xml:"codecs,attr"`
	MimeType          string              `xml:"mimeType,attr"`
	ContentType       string              `xml:"contentType,attr"`
	Width             int                 `xml:"width,attr"`
	Height            int                 `xml:"height,attr"`
	DefaultKID        string              `xml:"default_KID,attr"`
	BaseURL           []BaseURL           `xml:"BaseURL"`
	SegmentTemplate   *SegmentTemplate    `xml:"SegmentTemplate"`
	SegmentList       *SegmentList        `xml:"SegmentList"`
	SegmentBase       *SegmentBase        `xml:"SegmentBase"`
	ContentProtection []ContentProtection `xml:"ContentProtection"`
}

// ContentProtection carries the CENC default key id for encrypted content.
type ContentProtection struct {
	DefaultKID string `xml:"default_KID,attr"`
	SchemeID   string `xml:"schemeIdUri,attr"`
}

// SegmentTemplate expresses segment URLs as a pattern with substitutable
// placeholders, optionally driven by an explicit SegmentTimeline.
type SegmentTemplate struct {
	Initialization         string           `xml:"initialization,attr,omitempty"`
	Media                  string           `xml:"media,attr,omitempty"`
	Timescale              *int64           `xml:"timescale,attr,omitempty"`
	Duration               *int64           `xml:"duration,attr,omitempty"`
	StartNumber            *int64           `xml:"startNumber,attr,omitempty"`
	PresentationTimeOffset *int64           `xml:"presentationTimeOffset,attr,omitempty"`
	SegmentTimeline        *SegmentTimeline `xml:"SegmentTimeline"`
}

// SegmentTimeline enumerates explicit segment durations and repeat runs.
type SegmentTimeline struct {
	S []SegmentTimelineEntry `xml:"S"`
}

// SegmentTimelineEntry is one `<S t="" d="" r=""/>` row of a SegmentTimeline.
type SegmentTimelineEntry struct {
	T *int64 `xml:"t,attr,omitempty"`
	D int64  `xml:"d,attr"`
	R *int64 `xml:"r,attr,omitempty"`
}

// SegmentList enumerates segment URLs explicitly, one <SegmentURL> per segment.
type SegmentList struct {
	Timescale      *int64          `xml:"timescale,attr,omitempty"`
	Duration       *int64          `xml:"duration,attr,omitempty"`
	StartNumber    *int64          `xml:"startNumber,attr,omitempty"`
	Initialization *URL            `xml:"Initialization"`
	SegmentURLs    []SegmentURL    `xml:"SegmentURL"`
}

// SegmentURL is one explicit segment reference within a SegmentList.
type SegmentURL struct {
	Media    string `xml:"media,attr,omitempty"`
	Duration *int64 `xml:"duration,attr,omitempty"`
}

// SegmentBase describes a single-segment (byte-range indexed) representation.
// Byte-range indexing itself is out of scope; only the Initialization and an
// implied single whole-representation segment are honored.
type SegmentBase struct {
	Initialization *URL `xml:"Initialization"`
}

// URL is a sourceURL reference used by SegmentBase and SegmentList.
type URL struct {
	SourceURL string `xml:"sourceURL,attr,omitempty"`
}
