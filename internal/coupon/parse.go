package coupon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseTable reads one coupon per line in the form "CODE RATE" or
// "CODE,RATE". Blank lines and lines starting with '#' are skipped.
func parseTable(ctx context.Context, r io.Reader) (*mapTable, error) {
	table := newMapTable(16)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected CODE RATE, got %q", lineNo, line)
		}

		rate, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rate %q: %w", lineNo, fields[1], err)
		}
		if rate < 1 || rate > 100 {
			return nil, fmt.Errorf("line %d: rate %d out of range 1-100", lineNo, rate)
		}

		table.Add(fields[0], rate)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return table, nil
}
