package logs

import (
	"fmt"
	"io"
	"os"

	"github.com/reusee/trials/cmds"
)

var fileFlag = cmds.Var[string]("-log-file", "append logs to a file instead of stderr")

type Writer io.Writer

func (Module) Writer() Writer {
	if *fileFlag == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(*fileFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		return os.Stderr
	}
	return f
}
