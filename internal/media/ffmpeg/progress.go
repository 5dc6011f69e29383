package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parseProgress reads `-progress pipe:1` key=value output and reports
// completion percentages scaled into [base, base+span].
func parseProgress(r io.Reader, durationSeconds, base, span float64, report func(float64)) {
	scanner := bufio.NewScanner(r)
	last := -1.0
	emit := func(fraction float64) {
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		value := base + fraction*span
		if value <= last {
			return
		}
		last = value
		if report != nil {
			report(value)
		}
	}
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys carry microseconds.
			if durationSeconds <= 0 {
				continue
			}
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			emit(float64(us) / 1e6 / durationSeconds)
		case "progress":
			if value == "end" {
				emit(1)
			}
		}
	}
}
