package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verb is a consumer command.
type Verb string

const (
	VerbEnable     Verb = "ENABLE"
	VerbRemove     Verb = "REMOVE"
	VerbCapability Verb = "CAPABILITY"
	VerbProtocols  Verb = "PROTOCOLS"
)

// ErrMalformedCommand is returned for lines that do not follow
// "!<id> <VERB> [args]".
var ErrMalformedCommand = errors.New("malformed command")

// Command is one parsed consumer request.
type Command struct {
	ID       int
	Verb     Verb
	Protocol string
	Fields   string
}

// ParseCommand parses "!<id> ENABLE <PROTO> <*|f1,f2>", "!<id> REMOVE <PROTO>",
// "!<id> CAPABILITY <PROTO>" and "!<id> PROTOCOLS".
func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "!") {
		return Command{}, ErrMalformedCommand
	}

	id, err := strconv.Atoi(parts[0][1:])
	if err != nil || id < 0 {
		return Command{}, fmt.Errorf("%w: bad id %q", ErrMalformedCommand, parts[0])
	}

	cmd := Command{ID: id, Verb: Verb(strings.ToUpper(parts[1]))}
	args := parts[2:]

	switch cmd.Verb {
	case VerbEnable:
		if len(args) < 2 {
			return cmd, fmt.Errorf("%w: ENABLE needs a protocol and fields", ErrMalformedCommand)
		}
		cmd.Protocol = strings.ToUpper(args[0])
		cmd.Fields = strings.Join(args[1:], "")
	case VerbRemove, VerbCapability:
		if len(args) != 1 {
			return cmd, fmt.Errorf("%w: %s needs a protocol", ErrMalformedCommand, cmd.Verb)
		}
		cmd.Protocol = strings.ToUpper(args[0])
	case VerbProtocols:
		if len(args) != 0 {
			return cmd, fmt.Errorf("%w: PROTOCOLS takes no arguments", ErrMalformedCommand)
		}
	default:
		return cmd, fmt.Errorf("%w: unknown verb %q", ErrMalformedCommand, parts[1])
	}
	return cmd, nil
}

// Ack formats a success reply.
func Ack(id int) string {
	return fmt.Sprintf("*ACK: %d OK", id)
}

// Error formats a failure reply.
func Error(id int, err error) string {
	return fmt.Sprintf("*ERROR: %d %s", id, err)
}

// Capability formats the field table reply for p.
func Capability(p Protocol) string {
	return fmt.Sprintf("*CAPABILITY: %s %s", p.Name, strings.Join(p.Fields, ","))
}

// Protocols formats the protocol list reply.
func Protocols(names []string) string {
	return "*PROTOCOLS: " + strings.Join(names, ",")
}

// Push formats one line of protocol data.
func Push(proto, payload string) string {
	return fmt.Sprintf("*%s: %s", proto, payload)
}
