// Package script loads roll commands from files.
package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CommentPrefix starts a line that is ignored.
const CommentPrefix = "#"

// Line is one roll command and the 1-based line it came from.
type Line struct {
	Number  int
	Command string
}

// Load reads roll commands from the provided file path.
func Load(path string) ([]Line, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only script.
			_ = cerr
		}
	}()
	lines, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// Read returns every non-blank line of r that is not a comment.
func Read(r io.Reader) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, CommentPrefix) {
			continue
		}
		lines = append(lines, Line{Number: n, Command: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("script has no roll commands")
	}
	return lines, nil
}
