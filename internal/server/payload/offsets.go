package payload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseOffsets reads "<label> <hex>" lines. Blank lines are skipped; any
// other malformed line is an error.
func ParseOffsets(r io.Reader) ([]uint64, error) {
	var offsets []uint64

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("offsets line %d: want \"<label> <hex>\"", line)
		}

		hex := strings.TrimPrefix(strings.TrimPrefix(fields[1], "0x"), "0X")
		v, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("offsets line %d: %w", line, err)
		}
		offsets = append(offsets, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read offsets: %w", err)
	}
	return offsets, nil
}
