package stream

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const DefaultPort = "80"

var ErrInvalidURL = errors.New("invalid stream URL")

// HostData is the connection target of a stream URL.
type HostData struct {
	Host string
	Port string
	Path string
}

func (h HostData) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

func (h HostData) String() string {
	return "http://" + h.Addr() + h.Path
}

// ParseURL splits http://host[:port][/path]. The scheme is optional and the
// path ends at the first line break, so a URL cut out of a playlist body
// parses as-is.
func ParseURL(raw string) (HostData, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		if scheme := strings.ToLower(s[:i]); scheme != "http" && scheme != "icy" {
			return HostData{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
		}
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}

	hd := HostData{Port: DefaultPort, Path: "/"}
	hostport := s
	if i := strings.IndexByte(s, '/'); i >= 0 {
		hostport = s[:i]
		if path := strings.TrimSpace(s[i:]); len(path) > 1 {
			hd.Path = path
		}
	}

	hd.Host = hostport
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 {
		hd.Host = hostport[:i]
		port := hostport[i+1:]
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return HostData{}, fmt.Errorf("%w: bad port %q", ErrInvalidURL, port)
		}
		hd.Port = strconv.Itoa(n)
	}
	if hd.Host == "" {
		return HostData{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	return hd, nil
}
