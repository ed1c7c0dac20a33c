package bars

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/mohamedkhairy/streamta/internal/models"
)

// maxLineSize bounds one encoded bar
const maxLineSize = 1 << 20

// ReadBars decodes one JSON bar per line from r and calls fn for each in
// order. Blank lines and lines starting with '#' are skipped. Reading stops
// at the first decode error or when fn or ctx fails.
func ReadBars(ctx context.Context, r io.Reader, fn func(*models.Bar1m) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line, count := 0, 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return count, err
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 || data[0] == '#' {
			continue
		}
		bar, err := models.ParseBar(data)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(bar); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read bars: %w", err)
	}
	return count, nil
}
