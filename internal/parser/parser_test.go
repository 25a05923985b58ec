package parser

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func utcParser() *Parser {
	fixed := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	return New(WithLocation(time.UTC), WithClock(func() time.Time { return fixed }))
}

func TestParse_TwoParticipants(t *testing.T) {
	in := "2/24/24, 21:56 - Alice: Hello there!\n2/24/24, 21:59 - ~ Bob: Hi! How are you?"
	res := utcParser().Parse(in)

	if len(res.Messages) != 2 {
		t.Fatalf("want 2 messages, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Sender != "Alice" || res.Messages[0].Content != "Hello there!" {
		t.Fatalf("unexpected first message: %+v", res.Messages[0])
	}
	if res.Messages[1].Sender != "Bob" || res.Messages[1].Content != "Hi! How are you?" {
		t.Fatalf("unexpected second message: %+v", res.Messages[1])
	}
	if !reflect.DeepEqual(res.Metadata.Participants, []string{"Alice", "Bob"}) {
		t.Fatalf("participants = %v", res.Metadata.Participants)
	}
	if res.Metadata.Name != "Alice & Bob" {
		t.Fatalf("name = %q", res.Metadata.Name)
	}

	want := time.Date(2024, 2, 24, 21, 56, 0, 0, time.UTC)
	if !res.Messages[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v; want %v", res.Messages[0].Timestamp, want)
	}
	if !res.Metadata.DateRange.Start.Equal(want) ||
		!res.Metadata.DateRange.End.Equal(time.Date(2024, 2, 24, 21, 59, 0, 0, time.UTC)) {
		t.Fatalf("date range = %+v", res.Metadata.DateRange)
	}
}

func TestParse_ContinuationLines(t *testing.T) {
	in := "2/24/24, 21:56 - Alice: first line\nsecond line\n   third line  \n2/24/24, 22:00 - Bob: ok"
	res := utcParser().Parse(in)
	if len(res.Messages) != 2 {
		t.Fatalf("want 2 messages, got %d", len(res.Messages))
	}
	if got := res.Messages[0].Content; got != "first line\nsecond line\nthird line" {
		t.Fatalf("content = %q", got)
	}
}

func TestParse_LeadingJunkIsDropped(t *testing.T) {
	in := "junk before\nmore junk\n2/24/24, 21:56 - Alice: hi"
	res := utcParser().Parse(in)
	if len(res.Messages) != 1 || res.Messages[0].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", res.Messages)
	}
}

func TestParse_SystemMessages(t *testing.T) {
	in := strings.Join([]string{
		"1/5/23, 9:00 - Messages and calls are end-to-end encrypted.",
		"1/5/23, 9:01 - Alice: hey",
		"continued",
		"1/5/23, 9:02 - Bob left",
		"after system notice",
	}, "\n")
	res := utcParser().Parse(in)

	if len(res.Messages) != 3 {
		t.Fatalf("want 3 messages, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Sender != SystemSender {
		t.Fatalf("first message should be System, got %q", res.Messages[0].Sender)
	}
	if res.Messages[1].Content != "hey\ncontinued" {
		t.Fatalf("continuation not attached to Alice: %q", res.Messages[1].Content)
	}
	// A system notice closes the open message; the trailing line has nowhere to go.
	if res.Messages[2].Sender != SystemSender || res.Messages[2].Content != "Bob left" {
		t.Fatalf("unexpected system message: %+v", res.Messages[2])
	}
	if !reflect.DeepEqual(res.Metadata.Participants, []string{"Alice"}) {
		t.Fatalf("System must not be a participant: %v", res.Metadata.Participants)
	}
	if res.Metadata.Name != "Alice (Self Chat)" {
		t.Fatalf("name = %q", res.Metadata.Name)
	}
}

func TestParse_YearWindowAndFourDigitYears(t *testing.T) {
	cases := []struct {
		line string
		year int
	}{
		{"1/1/51, 0:00 - A: x", 1951},
		{"1/1/50, 0:00 - A: x", 2050},
		{"1/1/99, 0:00 - A: x", 1999},
		{"1/1/00, 0:00 - A: x", 2000},
		{"12/31/2019, 23:59 - A: x", 2019},
	}
	for _, tc := range cases {
		res := utcParser().Parse(tc.line)
		if len(res.Messages) != 1 {
			t.Fatalf("%q: want 1 message", tc.line)
		}
		if got := res.Messages[0].Timestamp.Year(); got != tc.year {
			t.Fatalf("%q: year = %d; want %d", tc.line, got, tc.year)
		}
	}
}

func TestParse_MonthOverflowIsNotValidated(t *testing.T) {
	res := utcParser().Parse("13/1/24, 10:00 - A: x")
	if len(res.Messages) != 1 {
		t.Fatalf("month 13 should still parse")
	}
	want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !res.Messages[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v; want overflow to %v", res.Messages[0].Timestamp, want)
	}
}

func TestParse_EmptySenderAndEmptyInput(t *testing.T) {
	res := utcParser().Parse("1/1/24, 10:00 -  : hello")
	if len(res.Messages) != 1 || res.Messages[0].Sender != "" {
		t.Fatalf("blank sender should be kept as empty string: %+v", res.Messages)
	}

	empty := utcParser().Parse("")
	if len(empty.Messages) != 0 || len(empty.Metadata.Participants) != 0 {
		t.Fatalf("empty input should yield nothing: %+v", empty)
	}
	if empty.Metadata.Name != UntitledChat {
		t.Fatalf("name = %q", empty.Metadata.Name)
	}
	fixed := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	if !empty.Metadata.DateRange.Start.Equal(fixed) || !empty.Metadata.DateRange.End.Equal(fixed) {
		t.Fatalf("empty date range should default to now: %+v", empty.Metadata.DateRange)
	}
}

func TestParse_CRLF(t *testing.T) {
	res := utcParser().Parse("1/1/24, 10:00 - A: one\r\n1/1/24, 10:01 - B: two\r\n")
	if len(res.Messages) != 2 || res.Messages[0].Content != "one" || res.Messages[1].Content != "two" {
		t.Fatalf("CRLF not handled: %+v", res.Messages)
	}
}

func TestParse_RoundTripThroughFormat(t *testing.T) {
	p := utcParser()
	orig := []Message{
		{Timestamp: time.Date(2023, 3, 9, 8, 5, 0, 0, time.UTC), Sender: SystemSender, Content: "Alice created group \"Trip\""},
		{Timestamp: time.Date(2023, 3, 9, 8, 6, 0, 0, time.UTC), Sender: "Alice", Content: "hi all"},
		{Timestamp: time.Date(2023, 3, 9, 8, 6, 0, 0, time.UTC), Sender: "Bob", Content: "line one\nline two"},
		{Timestamp: time.Date(2023, 3, 10, 23, 59, 0, 0, time.UTC), Sender: "Carol Ann", Content: "<Media omitted>"},
	}
	res := p.Parse(Format(orig))
	if !reflect.DeepEqual(res.Messages, orig) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", res.Messages, orig)
	}
}
