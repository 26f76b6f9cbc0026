// Package report renders the plain-text execution report.
package report

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/pipeline-observer/internal/jobs"
)

const (
	// SummaryWidth is the maximum width of the revision summary in the header.
	SummaryWidth = 50
	// idWidth is the number of revision id characters shown.
	idWidth = 8

	shortenPlaceholder = " [...]"
	unspecifiedTime    = "an unspecified amount of time"
	clockLayout        = "15:04:05"
	crlf               = "\r\n"
)

// Pluralise renders a count with its unit. Only 1 takes the singular form.
func Pluralise(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + plural
}

// HumanDuration renders the elapsed time between started and ended in
// whole minutes and seconds. Seconds are omitted when a full minute has
// passed and the remainder is zero. A nil ended yields a fixed phrase.
func HumanDuration(started time.Time, ended *time.Time) string {
	if ended == nil {
		return unspecifiedTime
	}
	elapsed := ended.Sub(started)
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed / time.Second)
	m, s := total/60, total%60

	var sb strings.Builder
	if m != 0 {
		sb.WriteString(Pluralise(m, "minute ", "minutes "))
		if s != 0 {
			sb.WriteString(Pluralise(s, "second", "seconds"))
		}
	} else {
		sb.WriteString(Pluralise(s, "second", "seconds"))
	}
	return strings.TrimRight(sb.String(), " ")
}

// Shorten collapses whitespace in text and, when the result is wider than
// width, keeps as many leading words as fit together with a " [...]" suffix.
// When not even one word fits only "[...]" is returned. Width counts runes.
func Shorten(text string, width int) string {
	words := strings.Fields(text)
	collapsed := strings.Join(words, " ")
	if utf8.RuneCountInString(collapsed) <= width {
		return collapsed
	}

	n := 0
	kept := 0
	for i, w := range words {
		next := n + utf8.RuneCountInString(w)
		if i > 0 {
			next++
		}
		if next+utf8.RuneCountInString(shortenPlaceholder) > width {
			break
		}
		n = next
		kept = i + 1
	}
	if kept == 0 {
		return strings.TrimLeft(shortenPlaceholder, " ")
	}
	return strings.Join(words[:kept], " ") + shortenPlaceholder
}

// SourceString renders the revision line: the short id, the shortened
// summary, then the URL on its own line.
func SourceString(id, summary, url string) string {
	if len(id) > idWidth {
		id = id[:idWidth]
	}
	return "[" + id + "] " + Shorten(summary, SummaryWidth) + crlf + url
}

// FormatStages renders the timeline. records must already be in timeline
// order. The first record describes the whole run, stage records open a
// new block and action records are indented beneath it.
func FormatStages(records []jobs.Record) string {
	var sb strings.Builder
	for i, rec := range records {
		started := rec.Started.UTC().Format(clockLayout)
		switch {
		case i == 0:
			sb.WriteString("The job started at " + started + " ")
			sb.WriteString("and took " + HumanDuration(rec.Started, rec.Ended) + crlf)
		case !rec.HasAction():
			sb.WriteString(crlf + "Stage " + rec.Stage + " started at " + started + crlf)
		default:
			sb.WriteString("    " + rec.Action + " " + strings.ToLower(rec.State) + " ")
			sb.WriteString("after " + HumanDuration(rec.Started, rec.Ended) + crlf)
		}
	}
	return sb.String()
}
