package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// readSources returns one source per non-blank line of path, or of stdin
// when path is "-". Lines starting with # are skipped.
func readSources(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("sources: %w", err)
		}
		defer f.Close()
		r = f
	}

	var sources []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sources: reading %s: %w", path, err)
	}
	return sources, nil
}
