package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"arhat.dev/linkhook/pkg/conf"
	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/scripts"
)

var defaultStates = []string{
	constant.StateDormant,
	constant.StateNoCarrier,
	constant.StateOff,
	constant.StateRoutable,
}

func newScriptsCmd(config *conf.Config) *cobra.Command {
	scriptsCmd := &cobra.Command{
		Use:           "scripts [state...]",
		Short:         "print scripts to run for each state in execution order",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			states := args
			if len(states) == 0 {
				states = defaultStates
			}

			return printScripts(os.Stdout, scripts.NewLocator(config.Linkhook.ScriptDirs), states)
		},
	}

	return scriptsCmd
}

func printScripts(w io.Writer, l *scripts.Locator, states []string) error {
	for _, state := range states {
		_, err := fmt.Fprintf(w, "%s%s:\n", state, constant.StateDirSuffix)
		if err != nil {
			return err
		}

		for _, s := range l.List(state) {
			_, err = fmt.Fprintf(w, "  %s\n", s)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
