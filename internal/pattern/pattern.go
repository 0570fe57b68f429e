// Package pattern holds every regular expression used to read the discourse
// graph exports: title encodings, attribute lines and experimental-log
// sections. Parsers call into it; nothing downstream of them should.
package pattern

import (
	"regexp"
	"strings"
	"time"
)

// Role is the discourse role encoded in a page title.
type Role string

const (
	RoleNone     Role = ""
	RoleQuestion Role = "question"
	RoleWork     Role = "work"
	RoleResult   Role = "result"
)

// CategorySeparator splits a work title into its category and description.
const CategorySeparator = "/"

var (
	workPrefix     = regexp.MustCompile(`^@[A-Za-z]+/`)
	questionMarker = regexp.MustCompile(`\[\[ISS\]\]`)
	resultMarker   = regexp.MustCompile(`\[\[RES\]\]`)
)

// Classify returns the role encoded in title. The work prefix wins over the
// bracketed keywords because result titles often embed a work title.
func Classify(title string) Role {
	switch {
	case workPrefix.MatchString(title):
		return RoleWork
	case questionMarker.MatchString(title):
		return RoleQuestion
	case resultMarker.MatchString(title):
		return RoleResult
	default:
		return RoleNone
	}
}

// SplitCategory splits a work title on its first separator only, so compound
// descriptions such as "Arp2/3 density" stay intact.
func SplitCategory(title string) (category, remainder string, ok bool) {
	t := strings.TrimPrefix(title, "@")
	i := strings.Index(t, CategorySeparator)
	if i < 0 {
		return "", t, false
	}
	return t[:i], t[i+len(CategorySeparator):], true
}

// Backreference is the double-bracket form a result title uses to cite a page.
func Backreference(title string) string {
	return "[[" + title + "]]"
}

var (
	logHeader  = regexp.MustCompile(`(?i)experiment(al)?\s+log`)
	dailyNote  = regexp.MustCompile(`\[\[([^\]]*?\d{1,2}(?:st|nd|rd|th),?\s+\d{4})\]\]`)
	ordinalSfx = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)`)
)

// IsLogHeader reports whether a block opens an experimental log section.
func IsLogHeader(text string) bool {
	return logHeader.MatchString(text)
}

// DatedEntry returns the daily-note reference a log entry starts from.
func DatedEntry(text string) (string, bool) {
	m := dailyNote.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseDailyNote parses a daily-note title like "October 31st, 2024" as a UTC date.
func ParseDailyNote(date string) (time.Time, bool) {
	s := ordinalSfx.ReplaceAllString(strings.TrimSpace(date), "$1")
	for _, layout := range []string{"January 2, 2006", "January 2 2006"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LogDatesInText returns the dated entries of the first experimental-log
// section in flat page text. The section runs from the header line to the
// next line indented no deeper than the header.
func LogDatesInText(text string) []string {
	var dates []string
	headerIndent := -1
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t-*")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if headerIndent < 0 {
			if IsLogHeader(trimmed) {
				headerIndent = indent
			}
			continue
		}
		if indent <= headerIndent {
			break
		}
		if date, ok := DatedEntry(trimmed); ok {
			dates = append(dates, date)
		}
	}
	return dates
}
