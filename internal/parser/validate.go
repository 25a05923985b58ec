package parser

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	validateSampleLines = 50
	validateMinRatio    = 0.3

	previewScanLines   = 20
	previewMaxMessages = 5
	previewEstimate    = 0.8
)

// Validation is the verdict of Validate. Errors are human-readable and each
// failed check contributes its own entry.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Validate checks with the default Parser.
func Validate(text string) Validation { return std.Validate(text) }

// Validate reports whether text looks like a chat export. It samples the
// first 50 non-empty lines and requires at least 30% of them, and at least
// one, to match either line grammar. It never panics or returns an error.
func (p *Parser) Validate(text string) Validation {
	errs := []string{}
	if strings.TrimSpace(text) == "" {
		errs = append(errs, "content is empty")
	}

	lines := splitLines(text)
	if len(lines) > validateSampleLines {
		lines = lines[:validateSampleLines]
	}
	matched := 0
	for _, l := range lines {
		if classify(l).kind != lineOther {
			matched++
		}
	}

	ratio := 0.0
	if len(lines) > 0 {
		ratio = float64(matched) / float64(len(lines))
	}
	if ratio < validateMinRatio {
		errs = append(errs, fmt.Sprintf(
			"format mismatch: only %.0f%% of the first %d lines match the expected \"M/D/YY, H:MM - Sender: Message\" format",
			ratio*100, len(lines)))
	}
	if matched == 0 {
		errs = append(errs, "format mismatch: no lines with a recognizable timestamp were found")
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}

// PreviewResult is a cheap look at the head of a transcript.
//
// EstimatedMessages is a heuristic (80% of non-empty lines) and must not be
// treated as a message count.
type PreviewResult struct {
	Messages          []Message `json:"messages"`
	Participants      []string  `json:"participants"`
	EstimatedMessages int       `json:"estimated_messages"`
}

// Preview previews with the default Parser.
func Preview(text string) PreviewResult { return std.Preview(text) }

// Preview parses only the first 20 lines, blank ones included, and returns at
// most five messages along with every participant seen in that window.
func (p *Parser) Preview(text string) PreviewResult {
	lines := splitLines(text)
	raw := strings.SplitN(strings.ReplaceAll(text, "\r\n", "\n"), "\n", previewScanLines+1)
	window := splitLines(strings.Join(raw[:min(len(raw), previewScanLines)], "\n"))

	acc := p.newAccumulator()
	for _, l := range window {
		acc.feed(l)
	}
	acc.flush()

	msgs := acc.messages
	if len(msgs) > previewMaxMessages {
		msgs = msgs[:previewMaxMessages]
	}
	if msgs == nil {
		msgs = []Message{}
	}
	participants := acc.participants
	if participants == nil {
		participants = []string{}
	}

	return PreviewResult{
		Messages:          msgs,
		Participants:      participants,
		EstimatedMessages: int(math.Floor(float64(len(lines)) * previewEstimate)),
	}
}

// Format renders messages back into the transcript line grammar. Two-digit
// years are emitted, so times outside 1951..2050 do not survive a round trip.
func Format(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(formatStamp(m.Timestamp))
		b.WriteString(" - ")
		if m.Sender != SystemSender {
			b.WriteString(m.Sender)
			b.WriteString(": ")
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

func formatStamp(t time.Time) string {
	return fmt.Sprintf("%d/%d/%02d, %d:%02d", int(t.Month()), t.Day(), t.Year()%100, t.Hour(), t.Minute())
}
