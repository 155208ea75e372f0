// src/feed/reader.go
package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/username/salesclaro/src/models"
)

// ErrSourceRead marks the one run-fatal failure class: the input feed could
// not be read at all.
var ErrSourceRead = errors.New("failed to read input feed")

// ReadLines consumes the feed into positioned raw lines. Positions are
// 1-based; blank lines are kept so the parser can count them.
func ReadLines(r io.Reader) ([]models.RawLine, error) {
	var lines []models.RawLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	position := 0
	for scanner.Scan() {
		position++
		lines = append(lines, models.RawLine{Text: scanner.Text(), Position: position})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceRead, err)
	}
	return lines, nil
}

// ReadFile reads the feed from disk.
func ReadFile(path string) ([]models.RawLine, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceRead, err)
	}
	defer file.Close()
	return ReadLines(file)
}
