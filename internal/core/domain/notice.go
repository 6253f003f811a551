package domain

import "time"

// Severity of a message-bus notice.
type Severity int

const (
	SeverityInfo Severity = 1 << iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Notice is a plain-text informational or error message.
type Notice struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
}
