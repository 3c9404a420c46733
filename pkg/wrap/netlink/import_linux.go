//go:build linux
// +build linux

package netlink

import (
	"github.com/vishvananda/netlink"
)

// nolint:golint
const (
	FAMILY_ALL = netlink.FAMILY_ALL
)

type (
	Addr = netlink.Addr
	Link = netlink.Link
)

// functions
var (
	LinkByName = netlink.LinkByName
	AddrList   = netlink.AddrList
)
