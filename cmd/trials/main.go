package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/reusee/dscope"
	"github.com/reusee/trials/cmds"
	"github.com/reusee/trials/debugs"
	"github.com/reusee/trials/logs"
	"github.com/reusee/trials/modes"
	"github.com/reusee/trials/monitors"
	"github.com/reusee/trials/presenters"
	"github.com/reusee/trials/tasks"
)

var (
	taskFlag   = cmds.Var[string]("task", "task description file (.yaml, .yml, .cue or .json)")
	blockFlags = cmds.Collect[string]("block", "run only the named block")
	inputFlag  = cmds.Var[string]("input", "read participant commands from a file instead of stdin")
	checkFlag  = cmds.Switch("check", "build every block and exit")
	tapFlag    = cmds.Switch("-tap", "open a starlark prompt over the results")
	devFlag    = cmds.Switch("-dev", "development mode, serves the monitor on a local port")
)

func main() {
	cmds.Execute(os.Args[1:])

	if *taskFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: task is required (use 'task path/to/task.yaml')")
		os.Exit(1)
	}
	task, err := tasks.Load(*taskFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if *checkFlag {
		if err := task.Check(); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("%s: %d blocks ok\n", task.Name, len(task.Blocks))
		return
	}

	mode := modes.ForProduction()
	if *devFlag {
		mode = modes.ForDevelopment()
	}
	scope := dscope.New(
		new(tasks.Module),
		new(monitors.Module),
		new(debugs.Module),
		mode,
	)

	scope.Call(func(
		runner *tasks.Runner,
		serve monitors.Serve,
		tap debugs.Tap,
		logger logs.Logger,
	) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		frames := presenters.NewHTML(task.Config.Background)
		monitor := monitors.New(frames)
		if _, err := serve(ctx, monitor); err != nil {
			logger.Error("serve monitor", "error", err)
			os.Exit(1)
		}

		input := os.Stdin
		if *inputFlag != "" {
			f, err := os.Open(*inputFlag)
			if err != nil {
				logger.Error("open input", "error", err)
				os.Exit(1)
			}
			defer f.Close()
			input = f
		}
		lines := tasks.NewLineInput(input)

		runner.Input = lines
		runner.Presenter = presenters.Multi(
			&presenters.Log{
				Logger: logger,
			},
			frames,
		)
		runner.Observer = monitor

		results, err := runner.RunTask(ctx, task, *blockFlags...)
		for _, line := range lines.Rejected() {
			logger.Warn("unknown input", "line", line)
		}
		if err != nil {
			logger.Error("run task", "error", err)
			os.Exit(1)
		}

		failed := false
		for _, result := range results {
			if result.Err != nil {
				failed = true
			}
			fmt.Printf("%s\t%s\t%d ticks\t%v\tinterrupted=%v\terror=%v\n",
				result.Block,
				result.Run,
				result.Ticks,
				result.Elapsed,
				result.Interrupted,
				result.Err,
			)
		}

		if *tapFlag && len(results) > 0 {
			if input == os.Stdin {
				logger.Warn("tap needs participant input from a file, skipped")
			} else {
				last := results[len(results)-1]
				globals := map[string]any{
					"results": results,
				}
				if last.Records != nil {
					globals["records"] = last.Records.Records()
				}
				if block, ok := task.Block(last.Block); ok {
					for name, value := range debugs.SignalGlobals(last.Snapshot, block.Signals) {
						globals[name] = value
					}
				}
				tap(ctx, task.Name, globals)
			}
		}

		if failed {
			os.Exit(1)
		}
	})
}
