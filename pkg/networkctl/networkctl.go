package networkctl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"arhat.dev/pkg/log"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/util"
)

// Link is one row of `networkctl list`
type Link struct {
	Index          int    `json:"index" yaml:"index"`
	Name           string `json:"name" yaml:"name"`
	Type           string `json:"type" yaml:"type"`
	Operational    string `json:"operational" yaml:"operational"`
	Administrative string `json:"administrative" yaml:"administrative"`
}

func (l Link) String() string {
	return fmt.Sprintf("Link(idx=%d, name=%q, type=%q, operational=%q, administrative=%q)",
		l.Index, l.Name, l.Type, l.Operational, l.Administrative)
}

type Client struct {
	path   string
	runner util.Runner
	logger log.Interface
}

// NewClient creates a client invoking the networkctl binary at path
func NewClient(path string, runner util.Runner) *Client {
	if path == "" {
		path = constant.NetworkctlCommand
	}

	if runner == nil {
		runner = util.ExecRunner{}
	}

	return &Client{
		path:   path,
		runner: runner,
		logger: log.Log.WithName("networkctl"),
	}
}

// List returns all links known to networkd, an empty list on failure
func (c *Client) List(ctx context.Context) []Link {
	out, err := c.runner.Output(ctx, c.path, "list", "--no-pager", "--no-legend")
	if err != nil {
		c.logger.E("networkctl list failed", log.Error(err))
		return []Link{}
	}

	return ParseList(out)
}

// Status returns the detail of a single link, empty on failure
func (c *Client) Status(ctx context.Context, ifname string) *Detail {
	out, err := c.runner.Output(ctx, c.path, "status", "--no-pager", "--no-legend", "--lines=0", "--", ifname)
	if err != nil {
		c.logger.E("failed to get interface status", log.String("ifname", ifname), log.Error(err))
		return NewDetail()
	}

	return ParseDetail(out)
}

// ParseList parses rows of `IDX LINK TYPE OPERATIONAL SETUP`
func ParseList(data []byte) []Link {
	ret := []Link{}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		ret = append(ret, Link{
			Index:          idx,
			Name:           fields[1],
			Type:           fields[2],
			Operational:    fields[3],
			Administrative: fields[4],
		})
	}

	return ret
}
