/*
Copyright 2020 The arhat.dev Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"arhat.dev/linkhook/pkg/conf"
	"arhat.dev/linkhook/pkg/host"

	// add sink drivers
	_ "arhat.dev/linkhook/pkg/sink/sinkadd"
)

func NewLinkhookCmd() *cobra.Command {
	var (
		appCtx context.Context
		cli    = new(conf.CLI)
		config = new(conf.Config)
	)

	linkhookCmd := &cobra.Command{
		Use:           "linkhook",
		Short:         "run scripts on systemd-networkd link state transitions",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			appCtx, err = conf.ReadConfig(cmd.Flags(), cli, config)
			if err != nil {
				return err
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(appCtx, config)
		},
	}

	linkhookCmd.PersistentFlags().AddFlagSet(cli.Flags())

	linkhookCmd.AddCommand(
		newScriptsCmd(config),
		newListCmd(&appCtx, config),
	)

	return linkhookCmd
}

func run(ctx context.Context, config *conf.Config) error {
	mgr, err := host.NewManager(ctx, config, host.Options{})
	if err != nil {
		return err
	}

	return mgr.Start()
}
