package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// publishedPattern finds "d/M/yyyy" followed, after any non-digits, by "HH:mm".
// Both sites render dates this way, e.g. "Thứ hai, 4/12/2023, 14:29 (GMT+7)".
var publishedPattern = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})[^\d]*(\d{2}:\d{2})`)

const publishedLayout = "2/1/2006 15:04"

// ParsePublishedTime extracts a day/month/year 24h timestamp from s in loc.
// It returns the zero time when s holds no such timestamp.
func ParsePublishedTime(s string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	m := publishedPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(publishedLayout, m[1]+" "+m[2], loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseLikes reads a like counter. Anything that is not an integer is 0.
func ParseLikes(s string) int {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
