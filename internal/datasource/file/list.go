package file

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadLocations reads a locations file: one local path or glob, s3:// or http(s)://
// URI per line. Blank lines and lines starting with '#' are skipped, a
// trailing " #" comment is stripped, and repeated entries are kept once in
// first-seen order.
func ReadLocations(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	locs, err := ParseLocations(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return locs, nil
}

// ParseLocations is ReadLocations over an arbitrary reader.
func ParseLocations(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
