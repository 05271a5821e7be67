package gateway

import (
	"bufio"
	"io"
	"strings"
)

const maxEventSize = 1 << 20

// readEvents calls fn with the payload of every "data:" line until the body
// ends, fn returns false, or reading fails.
func readEvents(body io.Reader, fn func(data []byte) bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		after, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		if !fn([]byte(strings.TrimPrefix(after, " "))) {
			return nil
		}
	}
	return scanner.Err()
}
