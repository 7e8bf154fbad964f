package mp3parser

import "errors"

// Version is the two bit MPEG audio version field.
type Version uint8

const (
	MPEG25          Version = 0x0
	VersionReserved Version = 0x1
	MPEG2           Version = 0x2
	MPEG1           Version = 0x3
)

func (v Version) String() string {
	switch v {
	case MPEG1:
		return "MPEG1"
	case MPEG2:
		return "MPEG2"
	case MPEG25:
		return "MPEG2.5"
	}
	return "reserved"
}

// Layer is the two bit layer description field.
type Layer uint8

const (
	LayerReserved Layer = 0x0
	Layer3        Layer = 0x1
	Layer2        Layer = 0x2
	Layer1        Layer = 0x3
)

func (l Layer) String() string {
	switch l {
	case Layer1:
		return "Layer I"
	case Layer2:
		return "Layer II"
	case Layer3:
		return "Layer III"
	}
	return "reserved"
}

// FrameHeader represents one decoded MP3 frame header
type FrameHeader struct {
	Raw             []byte // 4 header bytes, plus 2 CRC bytes when present
	Version         Version
	Layer           Layer
	CRC             bool
	Padding         bool
	BitrateIndex    int
	SampleRateIndex int
	ChannelMode     int
	HeaderSize      int
	AudioSize       int // frame length minus header; negative when invalid
}

// FrameLength is the total byte length of the frame including its header.
func (h *FrameHeader) FrameLength() int {
	return h.HeaderSize + h.AudioSize
}

// Frame is a complete MP3 frame. Audio is owned by the frame.
type Frame struct {
	Header *FrameHeader
	Audio  []byte
}

// Bytes returns the frame exactly as it appeared in the stream.
func (f *Frame) Bytes() []byte {
	b := make([]byte, 0, len(f.Header.Raw)+len(f.Audio))
	b = append(b, f.Header.Raw...)
	return append(b, f.Audio...)
}

// TagHeader represents the fixed 10 byte ID3v2 tag header
type TagHeader struct {
	Version        [2]byte
	ExtendedHeader bool
	Footer         bool
	Size           int // body size, synchsafe decoded
}

// TotalSize is the number of bytes the tag occupies in the stream.
func (t *TagHeader) TotalSize() int {
	n := t.Size + TagHeaderSize
	if t.Footer {
		n += TagHeaderSize
	}
	return n
}

// ObjectKind classifies what the scanner found.
type ObjectKind int

const (
	ObjectUnknown ObjectKind = iota // end of input or insufficient data
	ObjectMP3Frame
	ObjectID3v2Tag
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectMP3Frame:
		return "mp3-frame"
	case ObjectID3v2Tag:
		return "id3v2-tag"
	}
	return "unknown"
}

// Object is one scanner hit. Offset is the absolute stream offset for file
// scans and the window index for window scans.
type Object struct {
	Kind   ObjectKind
	Offset int64
	OOB    []byte
}

const (
	MinFrameHeaderSize = 4
	CRCSize            = 2
	TagHeaderSize      = 10
	LegacyTagSize      = 128
)

var (
	ErrNoValidFrame = errors.New("no valid frame found in range")
	ErrTruncated    = errors.New("object truncated by end of input")
	ErrNotATag      = errors.New("missing ID3 signature")
)
