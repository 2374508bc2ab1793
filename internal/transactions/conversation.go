package transactions

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

// MessageKind tells which side of the thread a message came from.
type MessageKind string

const (
	KindRemark   MessageKind = "remark"
	KindResponse MessageKind = "response"
)

// Message is one line of a transaction's remark/response thread.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Timestamp string      `json:"timestamp"`
	At        time.Time   `json:"at,omitzero"`
	User      string      `json:"user"`
	Text      string      `json:"text"`
}

var lineRE = regexp.MustCompile(`^(.*?) - (.*?): (.*)$`)

// Layouts accepted for the timestamp prefix of a conversation line. The
// first is what stamp writes. The others are the zone-less forms of older
// rows, which drop the seconds when they are zero.
var stampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}

// stamp renders the prefix written by AddRemark and AddResponse.
func stamp(at time.Time, user, text string) string {
	return at.Format(time.RFC3339) + " - " + user + ": " + text
}

func appendLine(thread, line string) string {
	if thread == "" {
		return line
	}
	return thread + "\n" + line
}

// ParseConversation merges remarks and responses into one thread ordered by
// timestamp. Lines that do not look like "<time> - <user>: <text>" are
// dropped; lines whose time cannot be parsed keep their input order after
// every dated message.
func ParseConversation(remarks, responses string) []Message {
	var out []Message
	out = appendMessages(out, KindRemark, remarks)
	out = appendMessages(out, KindResponse, responses)

	slices.SortStableFunc(out, func(a, b Message) int {
		switch {
		case a.At.IsZero() && b.At.IsZero():
			return 0
		case a.At.IsZero():
			return 1
		case b.At.IsZero():
			return -1
		}
		return a.At.Compare(b.At)
	})
	return out
}

func appendMessages(out []Message, kind MessageKind, text string) []Message {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		m := lineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Message{
			Kind:      kind,
			Timestamp: m[1],
			At:        parseStamp(m[1]),
			User:      m[2],
			Text:      m[3],
		})
	}
	return out
}

func parseStamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range stampLayouts {
		loc := time.UTC
		if layout != time.RFC3339Nano {
			loc = time.Local
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
