package cmds

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

func (p *Executor) PrintUsage() {
	p.WriteUsage(os.Stderr)
}

func (p *Executor) WriteUsage(w io.Writer) {
	names := slices.Clone(p.names)
	slices.Sort(names)
	for _, name := range names {
		if p.commands[name] == nil {
			continue
		}
		writeCommand(w, 0, name, p.commands[name])
	}
}

func writeCommand(w io.Writer, depth int, name string, cmd *Command) {
	indent := strings.Repeat("  ", depth)
	line := indent + name
	if len(cmd.Aliases) > 0 {
		line += " (" + strings.Join(cmd.Aliases, ", ") + ")"
	}
	if cmd.Func.IsValid() {
		for i := range cmd.Func.Type().NumIn() {
			line += " <" + cmd.Func.Type().In(i).String() + ">"
		}
	}
	if cmd.Description != "" {
		line += "\t" + cmd.Description
	}
	fmt.Fprintln(w, line)
	subs := make([]string, 0, len(cmd.Subs))
	for sub := range cmd.Subs {
		subs = append(subs, sub)
	}
	slices.Sort(subs)
	for _, sub := range subs {
		if cmd.Subs[sub] == nil {
			continue
		}
		writeCommand(w, depth+1, sub, cmd.Subs[sub])
	}
}
