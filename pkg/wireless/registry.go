package wireless

import (
	"context"
	"os/exec"

	"arhat.dev/pkg/log"

	"arhat.dev/linkhook/pkg/util"
)

type (
	// ArgsFunc builds the command line arguments for querying ifname
	ArgsFunc func(ifname string) []string

	// ExtractFunc finds the network name in the tool output
	ExtractFunc func(out []byte) (string, bool)
)

type tool struct {
	name    string
	args    ArgsFunc
	extract ExtractFunc
}

// registration order is preference order
var supportedTools []tool

// Register a wireless tool, tools registered earlier are preferred
func Register(name string, args ArgsFunc, extract ExtractFunc) {
	for i, t := range supportedTools {
		if t.name == name {
			supportedTools[i] = tool{name: name, args: args, extract: extract}
			return
		}
	}

	supportedTools = append(supportedTools, tool{
		name:    name,
		args:    args,
		extract: extract,
	})
}

type Resolver struct {
	runner   util.Runner
	lookPath util.LookPathFunc
	logger   log.Interface
}

func NewResolver(runner util.Runner, lookPath util.LookPathFunc) *Resolver {
	if runner == nil {
		runner = util.ExecRunner{}
	}

	if lookPath == nil {
		lookPath = exec.LookPath
	}

	return &Resolver{
		runner:   runner,
		lookPath: lookPath,
		logger:   log.Log.WithName("wireless"),
	}
}

// ESSID returns the network name ifname is connected to, or an empty
// string when it cannot be determined
func (r *Resolver) ESSID(ctx context.Context, ifname string) string {
	for _, t := range supportedTools {
		path, err := r.lookPath(t.name)
		if err != nil {
			continue
		}

		out, err := r.runner.Output(ctx, path, t.args(ifname)...)
		if err != nil {
			r.logger.I("unable to retrieve ESSID",
				log.String("ifname", ifname), log.String("tool", t.name), log.Error(err))
			return ""
		}

		essid, ok := t.extract(out)
		if !ok {
			r.logger.I("unable to retrieve ESSID for wireless interface",
				log.String("ifname", ifname), log.String("tool", t.name))
			return ""
		}

		return essid
	}

	r.logger.I("unable to retrieve ESSID for wireless interface: no supported wireless tool installed",
		log.String("ifname", ifname))
	return ""
}
