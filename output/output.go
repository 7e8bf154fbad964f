// Package output names and creates the files mp3nema writes.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryBase replaces the base name when the source is a directory.
const DirectoryBase = "mp3nema"

// maxSuffix bounds the search for a free name.
const maxSuffix = 10000

// BaseName derives the leading part of an output name from source. Stream
// sources keep their dots since they are host names.
func BaseName(source string, isStream bool) string {
	base := source
	if i := strings.LastIndex(source, "/"); i >= 0 && i+1 < len(source) {
		base = source[i+1:]
	}
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		return DirectoryBase
	}
	if !isStream {
		if i := strings.LastIndex(base, "."); i >= 0 {
			base = base[:i]
		}
	}
	return base
}

// Name formats <base>-<desc>.<ext>, or <base>-<desc>-<n>.<ext> when n > 0.
func Name(base, desc, ext string, n int) string {
	if n > 0 {
		return fmt.Sprintf("%s-%s-%d.%s", base, desc, n, ext)
	}
	return fmt.Sprintf("%s-%s.%s", base, desc, ext)
}

// Create makes a new file in dir without overwriting an existing one,
// appending an increasing number to the name until it is unused.
func Create(dir, source, desc, ext string, isStream bool) (*os.File, error) {
	if dir == "" {
		dir = "."
	}
	base := BaseName(source, isStream)

	for n := 0; n < maxSuffix; n++ {
		path := filepath.Join(dir, Name(base, desc, ext, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("could not create output file '%s': %w", path, err)
		}
	}
	return nil, fmt.Errorf("could not find a free name for %s-%s.%s in %s", base, desc, ext, dir)
}
