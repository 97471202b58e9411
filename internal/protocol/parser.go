// ABOUTME: Parser for the dialog engine's embedded reply protocol.
// ABOUTME: Splits a reply line into display text, an optional command, and a classifier suffix.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Command identifies the directive embedded in a dialog reply.
type Command int

const (
	// CommandNone means the reply is plain text with no directive.
	CommandNone Command = iota
	// CommandShowButtons asks the frontend to render selectable options.
	CommandShowButtons
	// CommandExecCode asks the bot to run a named follow-up action.
	CommandExecCode
)

// String returns the wire name of the command.
func (c Command) String() string {
	switch c {
	case CommandShowButtons:
		return "ShowButtons"
	case CommandExecCode:
		return "ExecCode"
	default:
		return "None"
	}
}

// ErrUnknownCommand indicates the reply named a command the protocol does
// not define.
var ErrUnknownCommand = errors.New("unknown command in dialog reply")

// ErrBadCommandArgs indicates the command's argument payload could not be
// decoded.
var ErrBadCommandArgs = errors.New("malformed command arguments in dialog reply")

// Button is one selectable option attached to a ShowButtons reply. Payload
// is re-delivered verbatim as the next user utterance when the option is
// picked, matching the inbound postback contract.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Envelope is the structured form of one dialog-engine reply line.
// Exactly one command variant holds; Buttons is set only for ShowButtons
// and ActionCall only for ExecCode.
type Envelope struct {
	DisplayText  string
	Command      Command
	Buttons      []Button
	ActionCall   string // raw call descriptor, resolved by the action registry
	ClassifierID string
}

// Parse decodes a reply line per the embedded grammar:
//
//	reply := body ["#" classifierId]
//	body  := text | text "$" command "$" args
//
// The "#" split happens at the first occurrence and the "$" split at the
// first and last occurrences, mirroring the dialog trees this bot is wired
// to. The grammar is ambiguous when message text itself contains "$" or
// "#"; dialog content must avoid them outside directives.
func Parse(reply string) (*Envelope, error) {
	env := &Envelope{}

	body := reply
	if idx := strings.Index(body, "#"); idx >= 0 {
		env.ClassifierID = body[idx+1:]
		body = body[:idx]
	}

	first := strings.Index(body, "$")
	if first < 0 {
		env.DisplayText = body
		return env, nil
	}
	last := strings.LastIndex(body, "$")

	env.DisplayText = body[:first]
	name := ""
	if last > first {
		name = body[first+1 : last]
	}
	args := body[last+1:]

	switch name {
	case "ShowButtons":
		env.Command = CommandShowButtons
		if err := json.Unmarshal([]byte(args), &env.Buttons); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCommandArgs, err)
		}
		if len(env.Buttons) == 0 {
			return nil, fmt.Errorf("%w: empty button list", ErrBadCommandArgs)
		}
	case "ExecCode":
		if strings.TrimSpace(args) == "" {
			return nil, fmt.Errorf("%w: empty action descriptor", ErrBadCommandArgs)
		}
		env.Command = CommandExecCode
		env.ActionCall = args
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	return env, nil
}
