// Package parser turns exported chat transcripts into typed messages.
//
// A transcript is plain text with one export line per message:
//
//	2/24/24, 21:56 - Alice: Hello there!
//	2/24/24, 21:57 - Alice created group "Trip"
//
// The first form is an attributed message, the second a system notice. Lines
// matching neither grammar continue the previous message, or are dropped when
// no message is open. Parsing never fails: transcripts are messy and the
// caller decides, via Validate, whether the result is worth keeping.
//
// The package performs no I/O and holds no state beyond its options, so a
// Parser is safe for concurrent use.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SystemSender is the sender assigned to unattributed transcript lines.
const SystemSender = "System"

// Message is one parsed utterance.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
}

// DateRange spans the first and last emitted message.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Metadata is derived from a full parse.
type Metadata struct {
	Participants []string  `json:"participants"`
	DateRange    DateRange `json:"date_range"`
	Name         string    `json:"name"`
}

// Result is the output of Parse.
type Result struct {
	Messages []Message `json:"messages"`
	Metadata Metadata  `json:"metadata"`
}

// ----------------------------------------------------------------------------
// Options

// Option configures a Parser.
type Option func(*config)

type config struct {
	loc            *time.Location
	now            func() time.Time
	groupScanLimit int
}

func defaultConfig() config {
	return config{
		loc:            time.Local,
		now:            time.Now,
		groupScanLimit: 10,
	}
}

// WithLocation sets the zone transcript wall-clock times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock overrides the clock used for the date range of an empty
// transcript.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithGroupScanLimit sets how many leading messages are scanned for a group
// subject when naming group chats.
func WithGroupScanLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.groupScanLimit = n
		}
	}
}

// Parser parses, validates and previews transcripts.
type Parser struct {
	cfg config
}

// New returns a Parser with the given options applied over the defaults.
func New(opts ...Option) *Parser {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Parser{cfg: cfg}
}

var std = New()

// Parse parses text with the default Parser.
func Parse(text string) Result { return std.Parse(text) }

// ----------------------------------------------------------------------------
// Grammar

var (
	// <date>, <time> - <sender>: <content>
	attributedRE = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}),\s(\d{1,2}:\d{2})\s-\s([^:]+):\s?(.*)$`)
	// <date>, <time> - <content>
	systemRE = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}),\s(\d{1,2}:\d{2})\s-\s(.*)$`)
)

// lineKind classifies a single transcript line.
type lineKind int

const (
	lineOther lineKind = iota
	lineAttributed
	lineSystem
)

type line struct {
	kind    lineKind
	date    string
	clock   string
	sender  string
	content string
	raw     string
}

func classify(raw string) line {
	if m := attributedRE.FindStringSubmatch(raw); m != nil {
		return line{kind: lineAttributed, date: m[1], clock: m[2], sender: m[3], content: m[4], raw: raw}
	}
	if m := systemRE.FindStringSubmatch(raw); m != nil {
		return line{kind: lineSystem, date: m[1], clock: m[2], content: m[3], raw: raw}
	}
	return line{kind: lineOther, raw: raw}
}

// splitLines returns the non-empty lines of text, trimmed.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Parsing

// accumulator runs the line state machine shared by Parse and Preview.
type accumulator struct {
	p            *Parser
	messages     []Message
	current      *Message
	participants []string
	seen         map[string]struct{}
}

func (p *Parser) newAccumulator() *accumulator {
	return &accumulator{p: p, seen: make(map[string]struct{})}
}

func (a *accumulator) flush() {
	if a.current != nil {
		a.messages = append(a.messages, *a.current)
		a.current = nil
	}
}

func (a *accumulator) register(sender string) {
	if sender == SystemSender {
		return
	}
	if _, ok := a.seen[sender]; ok {
		return
	}
	a.seen[sender] = struct{}{}
	a.participants = append(a.participants, sender)
}

func (a *accumulator) feed(raw string) {
	ln := classify(raw)
	switch ln.kind {
	case lineAttributed:
		a.flush()
		sender := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ln.sender), "~ "))
		a.register(sender)
		a.current = &Message{
			Timestamp: a.p.timestamp(ln.date, ln.clock),
			Sender:    sender,
			Content:   strings.TrimSpace(ln.content),
		}
	case lineSystem:
		a.flush()
		a.messages = append(a.messages, Message{
			Timestamp: a.p.timestamp(ln.date, ln.clock),
			Sender:    SystemSender,
			Content:   strings.TrimSpace(ln.content),
		})
	default:
		if a.current != nil {
			a.current.Content += "\n" + strings.TrimSpace(raw)
		}
	}
}

// Parse turns text into ordered messages plus derived metadata.
func (p *Parser) Parse(text string) Result {
	acc := p.newAccumulator()
	for _, l := range splitLines(text) {
		acc.feed(l)
	}
	acc.flush()

	msgs := acc.messages
	if msgs == nil {
		msgs = []Message{}
	}
	participants := acc.participants
	if participants == nil {
		participants = []string{}
	}

	var dr DateRange
	if len(msgs) == 0 {
		now := p.cfg.now()
		dr = DateRange{Start: now, End: now}
	} else {
		dr = DateRange{Start: msgs[0].Timestamp, End: msgs[len(msgs)-1].Timestamp}
	}

	return Result{
		Messages: msgs,
		Metadata: Metadata{
			Participants: participants,
			DateRange:    dr,
			Name:         p.chatName(participants, msgs),
		},
	}
}

// timestamp builds a wall-clock time from "M/D/YY" and "H:MM". Values are not
// range-checked: month 13 rolls into the following year.
func (p *Parser) timestamp(date, clock string) time.Time {
	d := strings.Split(date, "/")
	c := strings.Split(clock, ":")
	month, _ := strconv.Atoi(d[0])
	day, _ := strconv.Atoi(d[1])
	year, _ := strconv.Atoi(d[2])
	if len(d[2]) == 2 {
		year = windowYear(year)
	}
	hour, _ := strconv.Atoi(c[0])
	minute, _ := strconv.Atoi(c[1])
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, p.cfg.loc)
}

// windowYear maps a two-digit year onto 1951..2050.
func windowYear(yy int) int {
	if yy > 50 {
		return 1900 + yy
	}
	return 2000 + yy
}
