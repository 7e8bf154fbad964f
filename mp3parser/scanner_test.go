package mp3parser_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp3nema/mp3parser"
	"mp3nema/mp3parser/mp3test"
)

type hit struct {
	Kind   mp3parser.ObjectKind
	Offset int64
	OOB    int
}

// scanAll drives the scanner the way the analyzer does.
func scanAll(t *testing.T, data []byte, opts mp3parser.ScanOptions) []hit {
	t.Helper()

	r := bytes.NewReader(data)
	s := mp3parser.NewScanner(r, opts)

	var hits []hit
	for {
		obj, err := s.Next()
		require.NoError(t, err)
		hits = append(hits, hit{obj.Kind, obj.Offset, len(obj.OOB)})
		if obj.Kind == mp3parser.ObjectUnknown {
			return hits
		}
		require.NoError(t, mp3parser.SkipObject(r, obj.Kind, 0))
	}
}

func TestScanner_BackToBackFrames(t *testing.T) {
	const k = 7
	data := mp3test.Frames(mp3test.MPEG1Layer3, k)

	hits := scanAll(t, data, mp3parser.ScanOptions{})
	require.Len(t, hits, k+1)

	for i := 0; i < k; i++ {
		assert.Equal(t, mp3parser.ObjectMP3Frame, hits[i].Kind)
		assert.Equal(t, int64(i*417), hits[i].Offset)
		assert.Zero(t, hits[i].OOB)
	}
	assert.Equal(t, mp3parser.ObjectUnknown, hits[k].Kind)
	assert.Zero(t, hits[k].OOB)
}

func TestScanner_LeadingJunk(t *testing.T) {
	for _, j := range []int{1, 2, 3, 17, 600} {
		data := mp3test.Concat(mp3test.Junk(j), mp3test.Frames(mp3test.MPEG1Layer3, 2))

		var reported []byte
		hits := scanAll(t, data, mp3parser.ScanOptions{
			OnOOB: func(offset int64, oob []byte) {
				assert.Zero(t, offset)
				reported = append(reported, oob...)
			},
		})

		require.Len(t, hits, 3)
		assert.Equal(t, j, hits[0].OOB)
		assert.Equal(t, int64(j), hits[0].Offset)
		assert.Equal(t, mp3test.Junk(j), reported)
	}
}

func TestScanner_MixedObjects(t *testing.T) {
	tag, err := mp3test.Tag("scanner")
	require.NoError(t, err)

	data := mp3test.Concat(
		tag,
		mp3test.Frame(mp3test.MPEG1Layer3),
		mp3test.Junk(5),
		mp3test.Frame(mp3test.MPEG1Layer3CRC),
		mp3test.RawTag(40, true),
		mp3test.Frame(mp3test.MPEG2Layer3),
		mp3test.Junk(9),
	)

	var sink bytes.Buffer
	hits := scanAll(t, data, mp3parser.ScanOptions{Sink: &sink})

	kinds := make([]mp3parser.ObjectKind, 0, len(hits))
	for _, h := range hits {
		kinds = append(kinds, h.Kind)
	}
	assert.Equal(t, []mp3parser.ObjectKind{
		mp3parser.ObjectID3v2Tag,
		mp3parser.ObjectMP3Frame,
		mp3parser.ObjectMP3Frame,
		mp3parser.ObjectID3v2Tag,
		mp3parser.ObjectMP3Frame,
		mp3parser.ObjectUnknown,
	}, kinds)

	assert.Equal(t, 5, hits[2].OOB)
	// trailing junk: the last two bytes are never examined
	assert.Equal(t, 7, hits[5].OOB)
	assert.Equal(t, mp3test.Concat(mp3test.Junk(5), mp3test.Junk(7)), sink.Bytes())
}

func TestScanner_LegacyTrailerSwallowed(t *testing.T) {
	data := mp3test.Concat(mp3test.Frames(mp3test.MPEG1Layer3, 2), mp3test.LegacyTag())

	hits := scanAll(t, data, mp3parser.ScanOptions{})
	require.Len(t, hits, 3)
	assert.Equal(t, mp3parser.ObjectUnknown, hits[2].Kind)
	assert.Zero(t, hits[2].OOB)
	assert.Equal(t, int64(len(data)), hits[2].Offset)
}

func TestScanner_TAGNotAtTrailerIsOOB(t *testing.T) {
	data := mp3test.Concat([]byte("TAGx"), mp3test.Frame(mp3test.MPEG1Layer3))

	hits := scanAll(t, data, mp3parser.ScanOptions{})
	require.Len(t, hits, 2)
	assert.Equal(t, 4, hits[0].OOB)
}

func TestScanner_InvalidSyncIsOOB(t *testing.T) {
	// sync bits set but reserved bitrate
	data := mp3test.Concat([]byte{0xFF, 0xFB, 0xF0, 0x00}, mp3test.Frame(mp3test.MPEG1Layer3))

	hits := scanAll(t, data, mp3parser.ScanOptions{})
	require.Len(t, hits, 2)
	assert.Equal(t, mp3parser.ObjectMP3Frame, hits[0].Kind)
	assert.Equal(t, 4, hits[0].OOB)
	assert.Equal(t, int64(4), hits[0].Offset)
}

func TestScanner_UnknownIsIdempotent(t *testing.T) {
	r := bytes.NewReader([]byte("abcdef"))
	s := mp3parser.NewScanner(r, mp3parser.ScanOptions{})

	obj, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, mp3parser.ObjectUnknown, obj.Kind)
	assert.Len(t, obj.OOB, 4)

	for i := 0; i < 3; i++ {
		obj, err = s.Next()
		require.NoError(t, err)
		assert.Equal(t, mp3parser.ObjectUnknown, obj.Kind)
		assert.Empty(t, obj.OOB)
	}
}

func TestScanner_ShortInput(t *testing.T) {
	for _, data := range [][]byte{nil, {0xFF}, {0xFF, 0xFB}} {
		obj, err := mp3parser.NewScanner(bytes.NewReader(data), mp3parser.ScanOptions{}).Next()
		require.NoError(t, err)
		assert.Equal(t, mp3parser.ObjectUnknown, obj.Kind)
		assert.Empty(t, obj.OOB)
	}
}

func TestScanner_SyncAtEndWithoutRoomIsOOB(t *testing.T) {
	obj, err := mp3parser.NewScanner(bytes.NewReader([]byte{'a', 0xFF, 0xFB, 0x90}), mp3parser.ScanOptions{}).Next()
	require.NoError(t, err)
	assert.Equal(t, mp3parser.ObjectUnknown, obj.Kind)
	assert.Equal(t, []byte{'a', 0xFF}, obj.OOB)
}

// countingReader counts Read calls on the underlying reader.
type countingReader struct {
	*bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.Reader.Read(p)
}

func TestScanner_OOBAcrossReadBlocks(t *testing.T) {
	tag, err := mp3test.Tag("blocks")
	require.NoError(t, err)

	for _, j := range []int{59, 60, 61, 62, 63, 64, 65, 66, 188, 189, 190, 191, 192, 445, 446, 447, 70000} {
		t.Run(fmt.Sprintf("junk %d", j), func(t *testing.T) {
			data := mp3test.Concat(mp3test.Junk(j), mp3test.Frame(mp3test.MPEG1Layer3), mp3test.Junk(j), tag)

			hits := scanAll(t, data, mp3parser.ScanOptions{})
			require.Len(t, hits, 3)
			assert.Equal(t, hit{mp3parser.ObjectMP3Frame, int64(j), j}, hits[0])
			assert.Equal(t, hit{mp3parser.ObjectID3v2Tag, int64(2*j + 417), j}, hits[1])
			assert.Equal(t, mp3parser.ObjectUnknown, hits[2].Kind)

			trailer := mp3test.Concat(mp3test.Junk(j), mp3test.LegacyTag())
			hits = scanAll(t, trailer, mp3parser.ScanOptions{})
			require.Len(t, hits, 1)
			assert.Equal(t, hit{mp3parser.ObjectUnknown, int64(len(trailer)), j}, hits[0])
		})
	}
}

func TestScanner_ReadsInBlocks(t *testing.T) {
	const junk = 1 << 20
	data := mp3test.Concat(mp3test.Junk(junk), mp3test.Frame(mp3test.MPEG1Layer3))
	r := &countingReader{Reader: bytes.NewReader(data)}

	obj, err := mp3parser.NewScanner(r, mp3parser.ScanOptions{}).Next()
	require.NoError(t, err)
	assert.Equal(t, mp3parser.ObjectMP3Frame, obj.Kind)
	assert.Equal(t, int64(junk), obj.Offset)
	assert.Len(t, obj.OOB, junk)
	assert.Less(t, r.reads, 64)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(junk), pos)
}

func TestScanWindow(t *testing.T) {
	frame := mp3test.Frame(mp3test.MPEG1Layer3)

	t.Run("frame after junk", func(t *testing.T) {
		obj := mp3parser.ScanWindow(mp3test.Concat(mp3test.Junk(3), frame), false)
		assert.Equal(t, mp3parser.ObjectMP3Frame, obj.Kind)
		assert.Equal(t, int64(3), obj.Offset)
		assert.Equal(t, mp3test.Junk(3), obj.OOB)
	})

	t.Run("tag", func(t *testing.T) {
		obj := mp3parser.ScanWindow(mp3test.Concat([]byte("zz"), []byte("ID3")), false)
		assert.Equal(t, mp3parser.ObjectID3v2Tag, obj.Kind)
		assert.Equal(t, int64(2), obj.Offset)
	})

	t.Run("sync needs more data", func(t *testing.T) {
		obj := mp3parser.ScanWindow([]byte{'a', 'b', 0xFF, 0xFB, 0x90}, false)
		assert.Equal(t, mp3parser.ObjectUnknown, obj.Kind)
		assert.Equal(t, int64(2), obj.Offset)
		assert.Equal(t, []byte("ab"), obj.OOB)
	})

	t.Run("sync at final end is oob", func(t *testing.T) {
		obj := mp3parser.ScanWindow([]byte{'a', 'b', 0xFF, 0xFB, 0x90}, true)
		assert.Equal(t, mp3parser.ObjectUnknown, obj.Kind)
		assert.Equal(t, int64(3), obj.Offset)
		assert.Equal(t, []byte{'a', 'b', 0xFF}, obj.OOB)
	})

	t.Run("no legacy trailer in windows", func(t *testing.T) {
		obj := mp3parser.ScanWindow([]byte("TAGabc"), true)
		assert.Equal(t, []byte("TAGa"), obj.OOB)
	})
}
