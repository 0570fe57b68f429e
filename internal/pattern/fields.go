package pattern

import (
	"regexp"
	"strings"
)

// Field names an attribute line recorded in page content as "Label:: value".
type Field string

const (
	FieldMadeBy         Field = "made_by"
	FieldClaimedBy      Field = "claimed_by"
	FieldIssueCreatedBy Field = "issue_created_by"
	FieldAuthor         Field = "author"
	FieldStatus         Field = "status"
)

// Fields lists every attribute the parsers extract, in a stable order.
var Fields = []Field{FieldMadeBy, FieldClaimedBy, FieldIssueCreatedBy, FieldAuthor, FieldStatus}

// A researcher can be referenced either as a Markdown link "[Name](url)" or
// as a native page link "[[Name]]". Both are accepted everywhere.
const (
	markdownLink = `\[([^\]]+)\]\([^)]+\)`
	nativeLink   = `\[\[([^\]]+)\]\]`
)

type personPattern struct {
	markdown *regexp.Regexp
	native   *regexp.Regexp
	// excludeIssue rejects matches directly preceded by "Issue ", which
	// RE2 cannot express as a lookbehind.
	excludeIssue bool
}

func newPersonPattern(label string, excludeIssue bool) personPattern {
	prefix := label + `::\s*`
	return personPattern{
		markdown:     regexp.MustCompile(prefix + markdownLink),
		native:       regexp.MustCompile(prefix + nativeLink),
		excludeIssue: excludeIssue,
	}
}

func (p personPattern) find(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{p.markdown, p.native} {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if p.excludeIssue && precededByIssue(text, loc[0]) {
				continue
			}
			name := strings.TrimSpace(text[loc[2]:loc[3]])
			if name != "" {
				return name, true
			}
		}
	}
	return "", false
}

func precededByIssue(text string, start int) bool {
	const word = "issue "
	if start < len(word) {
		return false
	}
	return strings.EqualFold(text[start-len(word):start], word)
}

// personFields maps each person-valued field to its labels in priority order.
var personFields = map[Field][]personPattern{
	FieldMadeBy: {
		newPersonPattern(`Made [Bb]y`, false),
		newPersonPattern(`Creator`, false),
		newPersonPattern(`Created [Bb]y`, true),
	},
	FieldClaimedBy:      {newPersonPattern(`Claimed [Bb]y`, false)},
	FieldIssueCreatedBy: {newPersonPattern(`Issue Created [Bb]y`, false)},
	FieldAuthor:         {newPersonPattern(`Author`, false)},
}

var statusLine = regexp.MustCompile(`Status::\s*([^\n]+)`)

// ExtractField returns the value of field recorded in text.
func ExtractField(text string, field Field) (string, bool) {
	if text == "" {
		return "", false
	}
	if field == FieldStatus {
		m := statusLine.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
	for _, p := range personFields[field] {
		if name, ok := p.find(text); ok {
			return name, true
		}
	}
	return "", false
}
