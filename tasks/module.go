package tasks

import (
	"github.com/reusee/dscope"
	"github.com/reusee/trials/logs"
	"github.com/reusee/trials/trialconfigs"
)

type Module struct {
	dscope.Module
	Configs trialconfigs.Module
}

func (Module) Runner(
	logger logs.Logger,
	newSpan logs.NewSpan,
	output trialconfigs.Output,
	database trialconfigs.Database,
	subject trialconfigs.Subject,
	prefetch trialconfigs.Prefetch,
) *Runner {
	return &Runner{
		Logger:   logger,
		NewSpan:  newSpan,
		Output:   string(output),
		Database: string(database),
		Subject:  string(subject),
		Prefetch: int(prefetch),
	}
}
