package trialconfigs

import (
	"cmp"
	"strconv"

	"github.com/reusee/trials/cmds"
	"github.com/reusee/trials/configs"
)

// Output is the root directory of record files.
type Output string

var _ configs.Configurable = Output("")

func (Output) ConfigPath() string {
	return "output"
}

var outputFlag = cmds.Var[string]("-output", "record output directory")

func (Module) Output(
	loader configs.Loader,
	env Env,
) Output {
	return cmp.Or(
		Output(*outputFlag),
		Output(env("TRIALS_OUTPUT")),
		configs.Lookup[Output](loader),
		"output",
	)
}

// Database is an sqlite file receiving every record. Empty disables it.
type Database string

var _ configs.Configurable = Database("")

func (Database) ConfigPath() string {
	return "database"
}

var databaseFlag = cmds.Var[string]("-database", "sqlite file collecting every run")

func (Module) Database(
	loader configs.Loader,
	env Env,
) Database {
	return cmp.Or(
		Database(*databaseFlag),
		Database(env("TRIALS_DATABASE")),
		configs.Lookup[Database](loader),
	)
}

// Subject identifies the participant. Empty means anonymous.
type Subject string

var _ configs.Configurable = Subject("")

func (Subject) ConfigPath() string {
	return "subject"
}

var subjectFlag = cmds.Var[string]("-subject", "participant id")

func (Module) Subject(
	loader configs.Loader,
	env Env,
) Subject {
	return cmp.Or(
		Subject(*subjectFlag),
		Subject(env("TRIALS_SUBJECT")),
		configs.Lookup[Subject](loader),
	)
}

// MonitorAddr is where the experimenter monitor listens. Empty disables it.
type MonitorAddr string

var _ configs.Configurable = MonitorAddr("")

func (MonitorAddr) ConfigPath() string {
	return "monitor"
}

var monitorFlag = cmds.Var[string]("-monitor", "monitor listen address")

func (Module) MonitorAddr(
	loader configs.Loader,
	env Env,
) MonitorAddr {
	return cmp.Or(
		MonitorAddr(*monitorFlag),
		MonitorAddr(env("TRIALS_MONITOR")),
		configs.Lookup[MonitorAddr](loader),
	)
}

// Prefetch bounds concurrent media probes.
type Prefetch int

var _ configs.Configurable = Prefetch(0)

func (Prefetch) ConfigPath() string {
	return "prefetch"
}

var prefetchFlag = cmds.Var[int]("-prefetch", "concurrent media probes")

func (Module) Prefetch(
	loader configs.Loader,
	env Env,
) Prefetch {
	fromEnv, _ := strconv.Atoi(env("TRIALS_PREFETCH"))
	return cmp.Or(
		Prefetch(*prefetchFlag),
		Prefetch(fromEnv),
		configs.Lookup[Prefetch](loader),
		4,
	)
}
