package cmd

import (
	"bufio"
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp3nema/mp3parser/mp3test"
)

// run executes a fresh command tree with a config path that does not exist
// and every output file going to outDir.
func run(t *testing.T, outDir string, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--output-dir", outDir,
	}, args...))

	err := root.Execute()
	return buf.String(), err
}

func writeSong(t *testing.T, dir string) string {
	t.Helper()

	tag, err := mp3test.Tag("carrier")
	require.NoError(t, err)
	song := mp3test.Concat(mp3test.Junk(3), tag, mp3test.Frames(mp3test.MPEG1Layer3, 10))

	path := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(path, song, 0644))
	return path
}

func TestRoot_NoArgsPrintsHelp(t *testing.T) {
	out, err := run(t, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "mp3nema <source.mp3 | directory | stream-url>")
}

func TestRoot_AnalyzesFile(t *testing.T) {
	dir := t.TempDir()
	song := writeSong(t, dir)

	out, err := run(t, dir, song)
	require.NoError(t, err)
	assert.Contains(t, out, "[mp3nema] 3 bytes out-of-frame")
	assert.Contains(t, out, "[mp3nema] Frames: 10\n")
	assert.Contains(t, out, "[mp3nema] ID3v2 Tags: 1\n")
}

func TestRoot_VerboseDumpsBytes(t *testing.T) {
	dir := t.TempDir()
	song := writeSong(t, dir)

	out, err := run(t, dir, song, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "--OOB Data Found: 3 bytes at offset 0--")
	assert.Contains(t, out, "0x61(a) ")
}

func TestRoot_ExtractAndInjectAreExclusive(t *testing.T) {
	dir := t.TempDir()
	song := writeSong(t, dir)

	_, err := run(t, dir, song, "-e", "-i", song)
	assert.Error(t, err)
}

func TestRoot_InjectThenExtract(t *testing.T) {
	dir := t.TempDir()
	song := writeSong(t, dir)
	secret := []byte("meet me under the old bridge at nine")
	payload := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(payload, secret, 0644))

	out, err := run(t, dir, song, "-i", payload)
	require.NoError(t, err)

	injected := filepath.Join(dir, "song-injected-1.mp3")
	assert.Contains(t, out, injected)
	assert.FileExists(t, injected)

	original, err := os.ReadFile(song)
	require.NoError(t, err)
	info, err := os.Stat(injected)
	require.NoError(t, err)
	assert.Equal(t, int64(len(original)+len(secret)), info.Size())

	out, err = run(t, dir, injected, "-e")
	require.NoError(t, err)
	assert.Contains(t, out, "[mp3nema] Frames: 10\n")

	extracted, err := os.ReadFile(filepath.Join(dir, "song-injected-1-extracted-oob.dat"))
	require.NoError(t, err)
	assert.Contains(t, string(extracted), string(secret))
}

func TestInject_MissingPayload(t *testing.T) {
	dir := t.TempDir()
	song := writeSong(t, dir)

	_, err := run(t, dir, "inject", song, filepath.Join(dir, "nope.bin"))
	assert.Error(t, err)
}

func TestRoot_StreamSource(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		conn.Write([]byte("HTTP/1.0 200 OK\r\nContent-Type: audio/mpeg\r\n\r\n"))
		conn.Write(mp3test.Frames(mp3test.MPEG1Layer3, 4))
	}()

	dir := t.TempDir()
	out, err := run(t, dir, "http://"+ln.Addr().String()+"/live", "-c")
	require.NoError(t, err)
	assert.Contains(t, out, "[mp3nema] Frames: 4\n")
	assert.Contains(t, out, "[mp3nema] ID3v2 Tags: 0\n")
	assert.FileExists(t, filepath.Join(dir, "127.0.0.1-captured-stream.mp3"))
}

func TestConfig_InitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mp3nema", "config.yaml")

	exec := func(args ...string) (string, error) {
		var buf bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&buf)
		root.SetErr(&buf)
		root.SetArgs(append([]string{"--config", path}, args...))
		err := root.Execute()
		return buf.String(), err
	}

	out, err := exec("config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)
	assert.FileExists(t, path)

	_, err = exec("config", "init")
	assert.Error(t, err)

	_, err = exec("config", "init", "--force")
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("guard_frames: 5\nmedia_ext: .mp2\n"), 0600))
	out, err = exec("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "guard_frames: 5\n")
	assert.Contains(t, out, "media_ext: .mp2\n")
	assert.Contains(t, out, "stream.read_unit: 512\n")
}
