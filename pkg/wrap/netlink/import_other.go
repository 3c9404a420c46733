//go:build !linux
// +build !linux

package netlink

import (
	"errors"
	"net"
)

// nolint:golint
const (
	FAMILY_ALL = 0
)

var errNotSupported = errors.New("netlink is only supported on linux")

type Addr struct {
	*net.IPNet
}

type Link interface{}

func LinkByName(name string) (Link, error) {
	return nil, errNotSupported
}

func AddrList(link Link, family int) ([]Addr, error) {
	return nil, errNotSupported
}
