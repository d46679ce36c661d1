package interactive

import (
	"strings"
)

// Kind identifies a menu command.
type Kind int

const (
	KindUnknown Kind = iota
	KindList
	KindRefresh
	KindUse
	KindCheck
	KindHelp
	KindQuit
)

// Command is one parsed input line. Arg carries the target of use.
type Command struct {
	Kind Kind
	Arg  string
	Raw  string
}

// Parse turns a line into a Command. Blank lines parse as KindUnknown with an
// empty Raw.
func Parse(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: KindUnknown}
	}

	cmd := Command{Raw: strings.TrimSpace(line)}
	switch strings.ToLower(fields[0]) {
	case "list", "ls", "l":
		cmd.Kind = KindList
	case "refresh", "r":
		cmd.Kind = KindRefresh
	case "use", "u":
		cmd.Kind = KindUse
		cmd.Arg = strings.TrimSpace(strings.Join(fields[1:], " "))
	case "check", "c":
		cmd.Kind = KindCheck
	case "help", "h", "?":
		cmd.Kind = KindHelp
	case "quit", "q", "exit":
		cmd.Kind = KindQuit
	default:
		cmd.Kind = KindUnknown
	}
	return cmd
}
