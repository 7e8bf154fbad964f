// Package stream analyzes live MP3 streams served over HTTP or ICY.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mp3nema/analyzer"
	"mp3nema/metrics"
	"mp3nema/mp3parser"
	"mp3nema/output"
)

var (
	ErrRedirectUnparseable = errors.New("could not determine the redirect URL")
	ErrTooManyRedirects    = errors.New("too many redirects")
	ErrSessionClosed       = errors.New("session closed")
)

const (
	// maxRedirectBody bounds how much of a redirect response is buffered.
	maxRedirectBody = 64 << 10
	maxRedirects    = 5
)

var httpPrefix = []byte("HTTP")

// Options configures a Session.
type Options struct {
	ReadUnit        int
	WindowUnits     int
	RedirectTimeout time.Duration
	IgnoreFirstOOB  bool

	// Capture mirrors every raw chunk to <host>-captured-stream.mp3.
	Capture bool
	// Extract writes OOB bytes to <host>-extracted-oob.dat.
	Extract   bool
	OutputDir string

	Reporter *analyzer.Reporter
	Metrics  *metrics.Metrics
}

// Stats counts what a session has seen so far.
type Stats struct {
	Frames   int
	Tags     int
	OOBBytes int64
	Desyncs  int
	Bytes    int64
}

// Session is one connection to a stream server. Open connects, Run consumes
// the stream until it ends or the context is canceled, Close releases
// everything Open acquired.
type Session struct {
	ID     string
	Source HostData
	// Target is where the audio actually comes from after redirects.
	Target HostData

	opts    Options
	conn    net.Conn
	initial []byte
	capture *os.File
	oobFile *os.File
	reasm   *Reassembler
	stats   Stats

	mu          sync.Mutex
	closed      bool
	interrupted bool
}

func NewSession(rawURL string, opts Options) (*Session, error) {
	hd, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if opts.ReadUnit <= 0 {
		opts.ReadUnit = 512
	}
	if opts.WindowUnits < 2 {
		opts.WindowUnits = 8
	}
	if opts.RedirectTimeout <= 0 {
		opts.RedirectTimeout = 3 * time.Second
	}
	return &Session{
		ID:     uuid.NewString(),
		Source: hd,
		Target: hd,
		opts:   opts,
	}, nil
}

// Open connects, follows redirects and creates the output files.
func (s *Session) Open(ctx context.Context) error {
	conn, err := dial(ctx, s.Source)
	if err != nil {
		return err
	}
	s.conn = conn

	if err := s.handshake(ctx); err != nil {
		s.Close()
		return err
	}

	if s.opts.Capture {
		if s.capture, err = output.Create(s.opts.OutputDir, s.Source.Host, "captured-stream", "mp3", true); err != nil {
			log.Printf("Could not create a file to capture the stream to: %v", err)
		}
	}
	if s.opts.Extract {
		if s.oobFile, err = output.Create(s.opts.OutputDir, s.Source.Host, "extracted-oob", "dat", true); err != nil {
			log.Printf("Could not create a file to store out of band data: %v", err)
		}
	}

	ropts := ReassemblerOptions{
		Capacity:       s.opts.ReadUnit * s.opts.WindowUnits,
		Threshold:      s.opts.ReadUnit * (s.opts.WindowUnits - 1),
		IgnoreFirstOOB: s.opts.IgnoreFirstOOB,
		OnObject:       s.onObject,
		OnOOB:          s.onOOB,
		OnDesync:       s.onDesync,
	}
	if s.oobFile != nil {
		ropts.OOBSink = s.oobFile
	}
	if s.reasm, err = NewReassembler(ropts); err != nil {
		s.Close()
		return err
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionOpened()
	}
	log.Printf("[%s] connected to %s", s.ID, s.Target)
	return nil
}

func dial(ctx context.Context, hd HostData) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hd.Addr())
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", hd.Addr(), err)
	}
	return conn, nil
}

func sendQuery(conn net.Conn, hd HostData) error {
	query := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s:%s\r\n\r\n", hd.Path, hd.Host, hd.Port)
	if _, err := io.WriteString(conn, query); err != nil {
		return fmt.Errorf("could not send query to %s: %w", hd.Addr(), err)
	}
	return nil
}

// handshake sends the query and inspects the first response bytes. An HTTP
// response is either the audio itself or points at the real stream, ICY and
// anything else is audio. Redirects are followed up to maxRedirects hops.
func (s *Session) handshake(ctx context.Context) error {
	for hop := 0; ; hop++ {
		if err := sendQuery(s.conn, s.Target); err != nil {
			return err
		}

		first, err := s.readInitial()
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(first, httpPrefix) {
			s.initial = first
			return nil
		}

		target, body, err := redirectTarget(first)
		if err != nil {
			return err
		}
		if target == "" {
			// plain HTTP audio response
			s.initial = body
			return nil
		}
		if hop == maxRedirects {
			return fmt.Errorf("%w: more than %d redirects", ErrTooManyRedirects, maxRedirects)
		}

		hd, err := ParseURL(target)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedirectUnparseable, err)
		}
		log.Printf("[%s] redirected to %s", s.ID, hd)

		s.conn.Close()
		if s.conn, err = dial(ctx, hd); err != nil {
			s.conn = nil
			return err
		}
		s.Target = hd
	}
}

// readInitial reads until it can tell an HTTP response from raw audio. An
// HTTP response is collected until the server closes, the head announces
// audio or the redirect timeout expires.
func (s *Session) readInitial() ([]byte, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.RedirectTimeout)); err != nil {
		return nil, err
	}
	defer s.conn.SetReadDeadline(time.Time{})

	var resp bytes.Buffer
	buf := make([]byte, s.opts.ReadUnit)
	for resp.Len() < len(httpPrefix) {
		n, err := s.conn.Read(buf)
		resp.Write(buf[:n])
		if err == nil {
			continue
		}
		if resp.Len() > 0 && endOfResponse(err) {
			return resp.Bytes(), nil
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("connection closed by %s before any data", s.Target.Addr())
		}
		return nil, fmt.Errorf("failed to read from %s: %w", s.Target.Addr(), err)
	}
	if !bytes.HasPrefix(resp.Bytes(), httpPrefix) {
		return resp.Bytes(), nil
	}

	for !isAudioResponse(resp.Bytes()) && resp.Len() < maxRedirectBody {
		n, err := s.conn.Read(buf)
		resp.Write(buf[:n])
		if err != nil {
			if endOfResponse(err) {
				break
			}
			return nil, fmt.Errorf("failed to read response from %s: %w", s.Target.Addr(), err)
		}
	}
	return resp.Bytes(), nil
}

func endOfResponse(err error) bool {
	var nerr net.Error
	return errors.Is(err, io.EOF) || (errors.As(err, &nerr) && nerr.Timeout())
}

// isAudioResponse reports whether the response head is complete and
// announces MPEG audio. Playlists also use audio/ types and do not count.
func isAudioResponse(b []byte) bool {
	head, _, ok := bytes.Cut(b, []byte("\r\n\r\n"))
	if !ok {
		return false
	}
	for _, line := range strings.Split(string(head), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Type") {
			return isAudioType(value)
		}
	}
	return false
}

func isAudioType(contentType string) bool {
	ct, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(ct) {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg":
		return true
	}
	return false
}

// redirectTarget returns the URL an HTTP response points at, or "" and the
// response body when the response carries the audio itself.
func redirectTarget(resp []byte) (string, []byte, error) {
	r, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(resp)), nil)
	if err != nil {
		return findURL(resp)
	}
	defer r.Body.Close()
	body, _ := io.ReadAll(r.Body)

	if loc := r.Header.Get("Location"); loc != "" && r.StatusCode >= 300 && r.StatusCode < 400 {
		return loc, nil, nil
	}
	if isAudioType(r.Header.Get("Content-Type")) {
		return "", body, nil
	}
	return findURL(body)
}

// findURL picks the first http:// URL out of a playlist or page.
func findURL(b []byte) (string, []byte, error) {
	i := bytes.Index(b, []byte("http://"))
	if i < 0 {
		return "", nil, ErrRedirectUnparseable
	}
	u := b[i:]
	if j := bytes.IndexAny(u, " \t\r\n\"'<>"); j >= 0 {
		u = u[:j]
	}
	return string(u), nil, nil
}

// Run feeds the stream through the reassembler until the server closes the
// connection or ctx is canceled. Cancellation is not an error.
func (s *Session) Run(ctx context.Context) error {
	if s.reasm == nil {
		return ErrSessionClosed
	}

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.interrupted = true
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
	defer stop()

	if len(s.initial) > 0 {
		if err := s.consume(s.initial); err != nil {
			return err
		}
		s.initial = nil
	}

	buf := make([]byte, s.opts.ReadUnit)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if err := s.consume(buf[:n]); err != nil {
				return err
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				break
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}
	}

	return s.reasm.Flush()
}

func (s *Session) consume(chunk []byte) error {
	s.stats.Bytes += int64(len(chunk))
	if s.capture != nil {
		if _, err := s.capture.Write(chunk); err != nil {
			return fmt.Errorf("failed to capture stream: %w", err)
		}
	}

	err := s.reasm.Feed(chunk)
	if errors.Is(err, ErrWindowOverflow) || errors.Is(err, ErrZeroLengthFrame) {
		log.Printf("[%s] resynchronizing: %v", s.ID, err)
		return nil
	}
	return err
}

func (s *Session) onObject(ev Event) {
	switch ev.Kind {
	case mp3parser.ObjectMP3Frame:
		s.stats.Frames++
	case mp3parser.ObjectID3v2Tag:
		s.stats.Tags++
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordObject(metrics.SourceStream, ev.Kind.String())
	}
}

func (s *Session) onOOB(offset int64, oob []byte) {
	s.stats.OOBBytes += int64(len(oob))
	s.opts.Reporter.OOB(offset, oob)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordOOB(metrics.SourceStream, len(oob))
	}
}

func (s *Session) onDesync(reason string, dropped int) {
	s.stats.Desyncs++
	log.Printf("[%s] desync (%s), dropped %d bytes", s.ID, reason, dropped)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordDesync(reason)
	}
}

// Stats returns the counters collected so far.
func (s *Session) Stats() Stats {
	return s.stats
}

// Close releases the capture file, the OOB file and the connection, in that
// order. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.capture != nil {
		errs = append(errs, s.capture.Close())
		s.capture = nil
	}
	if s.oobFile != nil {
		errs = append(errs, s.oobFile.Close())
		s.oobFile = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		s.conn = nil
	}
	if s.reasm != nil {
		s.reasm = nil
		if s.opts.Metrics != nil {
			s.opts.Metrics.SessionClosed()
		}
	}

	if s.interrupted {
		log.Printf("[%s] session gracefully terminated", s.ID)
	}
	return errors.Join(errs...)
}
