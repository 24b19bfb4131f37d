package chat

import "strings"

type Command int

const (
	Help Command = iota
	Start
	Stop
)

var commands = []struct {
	cmd         Command
	name        string
	description string
}{
	{Help, "help", "display this text."},
	{Start, "start", "Start service."},
	{Stop, "stop", "stop service."},
}

func (c Command) String() string {
	for _, d := range commands {
		if d.cmd == c {
			return d.name
		}
	}
	return "unknown"
}

// HelpText lists the supported commands.
func HelpText() string {
	var sb strings.Builder
	sb.WriteString("These commands are supported:\n")
	for _, d := range commands {
		sb.WriteString("\n/" + d.name + " - " + d.description)
	}
	return sb.String()
}

// Parse recognizes a command in a chat message. Commands are case insensitive,
// may carry a @botname suffix and any trailing arguments are ignored.
func Parse(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return 0, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	name, _, _ = strings.Cut(name, "@")
	name = strings.ToLower(name)
	for _, d := range commands {
		if d.name == name {
			return d.cmd, true
		}
	}
	return 0, false
}
