package encoder

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	timeRe  = regexp.MustCompile(`time=([0-9:.]+)`)
	speedRe = regexp.MustCompile(`speed=\s*([0-9.]+)x`)
)

// Progress is what ffmpeg reports about a running encode. It is informational
// only.
type Progress struct {
	TaskID   string        `json:"taskId"`
	Position time.Duration `json:"position"`
	Speed    float64       `json:"speed"`
	Updated  time.Time     `json:"updated"`
}

// ParseProgress extracts time= and speed= from a status line.
func ParseProgress(line string) (Progress, bool) {
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	pos, ok := parseClock(m[1])
	if !ok {
		return Progress{}, false
	}
	p := Progress{Position: pos}
	if s := speedRe.FindStringSubmatch(line); s != nil {
		p.Speed, _ = strconv.ParseFloat(s[1], 64)
	}
	return p, true
}

// parseClock reads HH:MM:SS.ms.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second)), true
}

func isErrorLine(line string) bool {
	l := strings.ToLower(line)
	return strings.Contains(l, "error") || strings.Contains(l, "invalid")
}

// splitLines is bufio.ScanLines that also breaks on carriage returns, which
// ffmpeg uses to redraw its status line.
func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
