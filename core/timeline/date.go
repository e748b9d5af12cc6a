package timeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dayMonthYearRegex = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})(?:\D|$)`)
	monthYearRegex    = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{4})(?:\D|$)`)
	yearRegex         = regexp.MustCompile(`\b(\d{4})\b`)
)

// ResolveDateValue converts a free-text date into YYYY*10000 + MM*100 + DD.
// Missing month and day are 0, so "1945" sorts before "08/1945" which sorts before "02/08/1945".
// A range ("1945 - 1954") resolves to its lower bound. Text without any date resolves to 0.
func ResolveDateValue(s string) int {
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if m := dayMonthYearRegex.FindStringSubmatch(s); m != nil {
		return dateValue(atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := monthYearRegex.FindStringSubmatch(s); m != nil {
		return dateValue(atoi(m[2]), atoi(m[1]), 0)
	}
	if m := yearRegex.FindStringSubmatch(s); m != nil {
		return dateValue(atoi(m[1]), 0, 0)
	}
	return 0
}

func dateValue(year, month, day int) int {
	return year*10000 + month*100 + day
}

// atoi is only fed regex digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
