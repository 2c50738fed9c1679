package flagparse

import (
	"fmt"

	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// Command identifies the subcommand being executed.
type Command int

const (
	None Command = iota
	Copy
	Version
	Init
)

var commandToString = map[Command]string{
	None:    "none",
	Copy:    "copy",
	Version: "version",
	Init:    "init",
}

var stringToCommand map[string]Command

func init() {
	stringToCommand = util.InvertMap(commandToString)
}

func (c Command) String() string {
	if str, ok := commandToString[c]; ok {
		return str
	}
	return fmt.Sprintf("unknown_command(%d)", c)
}

func ParseCommand(s string) (Command, error) {
	if command, ok := stringToCommand[s]; ok {
		return command, nil
	}
	return None, fmt.Errorf("invalid command: %q. Must be 'copy', 'version', or 'init'", s)
}
