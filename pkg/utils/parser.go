package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

var sizePattern = regexp.MustCompile(`^(\d+)\s*([A-Z]*)$`)

// Binary units, 1KB = 1024 bytes.
var sizeUnits = map[string]int64{
	"": 1, "B": 1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// SizeToBytes turns config values like "25MB" or "512 kb" into bytes.
// Anything it cannot read logs a warning and returns def.
func SizeToBytes(s string, def int64) int64 {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return def
	}
	m := sizePattern.FindStringSubmatch(raw)
	if m == nil {
		logger.LogWarn(" Config: unreadable size %q, falling back to %d bytes", s, def)
		return def
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	mult, ok := sizeUnits[m[2]]
	if err != nil || n <= 0 || !ok {
		logger.LogWarn(" Config: unreadable size %q, falling back to %d bytes", s, def)
		return def
	}
	return n * mult
}

// DurationOr parses a Go duration string, falling back to def when the
// value is empty, malformed or not positive.
func DurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
