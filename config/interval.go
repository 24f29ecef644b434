package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BatsimInterval is a parsed --checkpoint-batsim-interval value: either a
// real (wall-clock) or simulated interval expressed as DAYS-HH:MM:SS,
// converted to seconds, following the
// "real|simulated:DAYS-HH:MM:SS[:keep]" syntax.
type BatsimInterval struct {
	Simulated bool
	Seconds   float64
	Keep      int // 0 means "use --checkpoint-batsim-keep instead"
}

// ParseBatsimInterval parses the --checkpoint-batsim-interval flag value.
// An empty string means "batsim-level checkpointing disabled" and returns
// the zero BatsimInterval with no error.
func ParseBatsimInterval(s string) (BatsimInterval, error) {
	if s == "" {
		return BatsimInterval{}, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return BatsimInterval{}, errBadStartParse("checkpoint-batsim-interval", s)
	}
	var iv BatsimInterval
	switch parts[0] {
	case "real":
		iv.Simulated = false
	case "simulated":
		iv.Simulated = true
	default:
		return BatsimInterval{}, errBadStartParse("checkpoint-batsim-interval", s)
	}

	rest := parts[1]
	var keepStr string
	if i := strings.LastIndex(rest, ":"); i >= 0 && strings.Count(rest, ":") >= 3 {
		// DAYS-HH:MM:SS:keep — the trailing segment after the 3rd colon is keep.
		rest, keepStr = rest[:i], rest[i+1:]
	}

	secs, err := parseDaysHMS(rest)
	if err != nil {
		return BatsimInterval{}, errBadStartParse("checkpoint-batsim-interval", s)
	}
	iv.Seconds = secs

	if keepStr != "" {
		k, err := strconv.Atoi(keepStr)
		if err != nil {
			return BatsimInterval{}, errBadStartParse("checkpoint-batsim-interval", s)
		}
		iv.Keep = k
	}
	return iv, nil
}

// parseDaysHMS parses "DAYS-HH:MM:SS" (DAYS- optional) into seconds.
func parseDaysHMS(s string) (float64, error) {
	var days float64
	if i := strings.Index(s, "-"); i >= 0 {
		d, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, errors.Errorf("invalid days component %q", s[:i])
		}
		days = float64(d)
		s = s[i+1:]
	}
	hms := strings.Split(s, ":")
	if len(hms) != 3 {
		return 0, errors.Errorf("expected HH:MM:SS, got %q", s)
	}
	h, err1 := strconv.Atoi(hms[0])
	m, err2 := strconv.Atoi(hms[1])
	sec, err3 := strconv.Atoi(hms[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, errors.Errorf("invalid HH:MM:SS component in %q", s)
	}
	return days*86400 + float64(h)*3600 + float64(m)*60 + float64(sec), nil
}
