package mvn

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	gutter      = "[INFO] "
	startMarker = gutter + "--- "
)

var divider = gutter + strings.Repeat("-", 72)

type treeState int

const (
	seekingStart treeState = iota
	collecting
	done
)

// ParseDependencyTree extracts the dependencies listed in the first
// "--- plugin ---" block of `mvn dependency:tree` output, in file order.
// Output without a start marker yields no coordinates and no error.
func ParseDependencyTree(lines []string) ([]PackageCoordinate, error) {
	var (
		coords []PackageCoordinate
		state  = seekingStart
	)

	for i, raw := range lines {
		if state == done {
			break
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line := strings.TrimRightFunc(raw, unicode.IsSpace)

		switch state {
		case seekingStart:
			if strings.HasPrefix(line, startMarker) {
				state = collecting
			}
		case collecting:
			if strings.HasPrefix(line, divider) {
				state = done
				continue
			}
			c, err := ParseCoordinate(treeEntry(line))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			coords = append(coords, c)
		}
	}

	return coords, nil
}

// ReadDependencyTree reads r to the end and parses it.
func ReadDependencyTree(r io.Reader) ([]PackageCoordinate, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return ParseDependencyTree(lines)
}

// ReadLines splits r into lines without their terminators.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dependency tree: %w", err)
	}
	return lines, nil
}

// treeEntry drops the "[INFO] " gutter and the tree glyphs ("+- ", "|  \- ").
func treeEntry(line string) string {
	if len(line) < len(gutter) {
		return ""
	}
	entry := line[len(gutter):]
	if i := strings.LastIndex(entry, "- "); i >= 0 {
		entry = entry[i+2:]
	}
	return entry
}
