// Package models contain the API request and response types
package models

// AnalyzeResponse represents the result of scanning an uploaded MP3
type AnalyzeResponse struct {
	Success        bool        `json:"success"`
	Message        string      `json:"message,omitempty"`
	Frames         int         `json:"frames"`
	Tags           int         `json:"tags"`
	OOBBytes       int64       `json:"oob_bytes"`
	OOBRegions     []OOBRegion `json:"oob_regions,omitempty"`
	AncillaryBytes int         `json:"ancillary_bytes"`
	Truncated      bool        `json:"truncated"`
}

// OOBRegion is one run of out-of-band bytes
type OOBRegion struct {
	Offset int64 `json:"offset"`
	Size   int   `json:"size"`
}

// InjectRequest holds the optional form fields of an injection
type InjectRequest struct {
	GuardFrames *int `form:"guard_frames" binding:"omitempty,min=0"`
	Verify      bool `form:"verify"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// AudioMetadata represents metadata about decoded audio
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitDepth   int     `json:"bit_depth"`
	Duration   float64 `json:"duration"`
	TotalBytes int     `json:"total_bytes"`
}

// Verification compares the decoded audio of a carrier and its injected copy
type Verification struct {
	Original    *AudioMetadata `json:"original"`
	Injected    *AudioMetadata `json:"injected"`
	PSNR        float64        `json:"psnr"`
	SameLength  bool           `json:"same_length"`
	Transparent bool           `json:"transparent"`
	ThresholdDB float64        `json:"threshold_db"`
}
