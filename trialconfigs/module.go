package trialconfigs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/trials/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}
