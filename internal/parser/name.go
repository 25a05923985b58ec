package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// UntitledChat names a transcript without any attributed sender.
const UntitledChat = "Untitled Chat"

var (
	// groupActivityRE flags notices that typically carry the group subject.
	groupActivityRE = regexp.MustCompile(`(?i)\b(added|created|changed)\b|\b(subject|group)\b`)
	// subjectRE captures the last quoted string after "subject". Quotes pair
	// by kind; a single quote touching a letter is an apostrophe.
	subjectRE = regexp.MustCompile(`(?i)subject.*(?:"([^"]+)"|“([^”]+)”|\B'(.+?)'\B|‘(.+?)’\B)`)
)

// chatName picks the display name for a transcript:
//
//	0 participants  → UntitledChat
//	1               → "<name> (Self Chat)"
//	2               → "<A> & <B>"
//	group           → quoted subject from the first messages, if any
//	≤4              → "A, B, C, D"
//	>4              → "A, B, C and N others"
func (p *Parser) chatName(participants []string, msgs []Message) string {
	switch len(participants) {
	case 0:
		return UntitledChat
	case 1:
		return participants[0] + " (Self Chat)"
	case 2:
		return participants[0] + " & " + participants[1]
	}

	if subject := p.groupSubject(msgs); subject != "" {
		return subject
	}
	if len(participants) <= 4 {
		return strings.Join(participants, ", ")
	}
	return fmt.Sprintf("%s and %d others", strings.Join(participants[:3], ", "), len(participants)-3)
}

// groupSubject scans the leading messages for group-activity notices and
// returns the most recent quoted subject found among them.
func (p *Parser) groupSubject(msgs []Message) string {
	limit := p.cfg.groupScanLimit
	if limit > len(msgs) {
		limit = len(msgs)
	}
	subject := ""
	for _, m := range msgs[:limit] {
		if !groupActivityRE.MatchString(m.Content) {
			continue
		}
		if s := quotedSubject(m.Content); s != "" {
			subject = s
		}
	}
	return subject
}

func quotedSubject(content string) string {
	sm := subjectRE.FindStringSubmatch(content)
	if sm == nil {
		return ""
	}
	for _, g := range sm[1:] {
		if s := strings.TrimSpace(g); s != "" {
			return s
		}
	}
	return ""
}
