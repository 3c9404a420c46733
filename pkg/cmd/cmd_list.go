package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"arhat.dev/linkhook/pkg/conf"
	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/networkctl"
	"arhat.dev/linkhook/pkg/util"
)

func newListCmd(appCtx *context.Context, config *conf.Config) *cobra.Command {
	var output string

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "print links as tracked by the dispatcher",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Linkhook.Networkctl
			if path == "" {
				path = constant.NetworkctlCommand
			}

			path, err := exec.LookPath(path)
			if err != nil {
				return fmt.Errorf("networkctl not found: %w", err)
			}

			links := networkctl.NewClient(path, util.ExecRunner{}).List(*appCtx)
			return printLinks(os.Stdout, links, output)
		},
	}

	listCmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format, one of [yaml, json]")

	return listCmd
}

func printLinks(w io.Writer, links []networkctl.Link, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(links); err != nil {
			return err
		}

		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(links)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
