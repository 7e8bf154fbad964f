// Package mp3test builds synthetic MPEG audio streams for tests.
package mp3test

import (
	"bytes"
	"fmt"

	"github.com/bogem/id3v2"

	"mp3nema/mp3parser"
)

// Frame headers with known lengths.
var (
	MPEG1Layer3       = []byte{0xFF, 0xFB, 0x90, 0x00} // 128kbit/s 44.1kHz, 417 bytes
	MPEG1Layer3Padded = []byte{0xFF, 0xFB, 0x92, 0x00} // 418 bytes
	MPEG1Layer3CRC    = []byte{0xFF, 0xFA, 0x90, 0x00} // 417 bytes, 6 byte header
	MPEG1Layer2       = []byte{0xFF, 0xFD, 0x90, 0x00} // 160kbit/s 44.1kHz, 522 bytes
	MPEG1Layer1       = []byte{0xFF, 0xFF, 0x90, 0x00} // 288kbit/s 44.1kHz, 312 bytes
	MPEG2Layer3       = []byte{0xFF, 0xF3, 0x90, 0x00} // 80kbit/s 22.05kHz, 522 bytes
	MPEG25Layer3      = []byte{0xFF, 0xE3, 0x90, 0x00} // 80kbit/s 11.025kHz, 1044 bytes
)

// Frame returns a complete frame for header, CRC bytes included when the
// header asks for them. The payload never contains a sync byte.
func Frame(header []byte) []byte {
	h, err := mp3parser.ParseFrameHeader(header)
	if err != nil || !h.Valid() {
		panic(fmt.Sprintf("mp3test: invalid header % x", header))
	}

	b := make([]byte, h.FrameLength())
	copy(b, header[:mp3parser.MinFrameHeaderSize])
	for i := h.HeaderSize; i < len(b); i++ {
		b[i] = byte(i % 200)
	}
	return b
}

// Frames returns n back to back frames.
func Frames(header []byte, n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		buf.Write(Frame(header))
	}
	return buf.Bytes()
}

// Junk returns n lowercase letters. They never form a sync pattern, an
// ID3 signature or a legacy TAG trailer.
func Junk(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}
	return b
}

// Tag renders a real ID3v2.4 tag with a title frame.
func Tag(title string) ([]byte, error) {
	tag := id3v2.NewEmptyTag()
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(title)

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render tag: %w", err)
	}
	return buf.Bytes(), nil
}

// RawTag builds a tag by hand with a zeroed body of bodySize bytes.
func RawTag(bodySize int, footer bool) []byte {
	size := []byte{
		byte(bodySize>>21) & 0x7F,
		byte(bodySize>>14) & 0x7F,
		byte(bodySize>>7) & 0x7F,
		byte(bodySize) & 0x7F,
	}

	var flags byte
	if footer {
		flags |= 0x10
	}

	b := append([]byte{'I', 'D', '3', 4, 0, flags}, size...)
	b = append(b, make([]byte, bodySize)...)
	if footer {
		b = append(b, '3', 'D', 'I', 4, 0, flags)
		b = append(b, size...)
	}
	return b
}

// LegacyTag returns a 128 byte ID3v1 trailer.
func LegacyTag() []byte {
	b := make([]byte, mp3parser.LegacyTagSize)
	copy(b, "TAG")
	copy(b[3:], "title")
	return b
}

// Concat joins stream pieces.
func Concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}
