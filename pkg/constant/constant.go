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

package constant

import "time"

// default script search path, earlier entries shadow later ones
var DefaultScriptDirs = []string{
	"/etc/networkd-dispatcher",
	"/usr/lib/networkd-dispatcher",
}

const (
	DefaultConfigFile = "/etc/linkhook/config.yaml"

	NetworkctlCommand = "networkctl"
	IWCommand         = "iw"
	IWConfigCommand   = "iwconfig"

	DefaultHookTimeout time.Duration = 0
)

// state directories
const (
	StateDirSuffix = ".d"

	StateDormant   = "dormant"
	StateNoCarrier = "no-carrier"
	StateOff       = "off"
	StateRoutable  = "routable"

	// AdministrativeStateLinger is reported when networkd is dropping the link
	AdministrativeStateLinger = "linger"
)

// interface types reported by networkctl
const (
	LinkTypeWireless  = "wlan"
	LinkTypeWireGuard = "wireguard"
)

// systemd-networkd bus names
const (
	NetworkdBusName         = "org.freedesktop.network1"
	NetworkdLinkInterface   = "org.freedesktop.network1.Link"
	NetworkdLinkPathPrefix  = "/org/freedesktop/network1/link"
	PropertiesInterface     = "org.freedesktop.DBus.Properties"
	PropertiesChangedMember = "PropertiesChanged"

	PropertyAdministrativeState = "AdministrativeState"
	PropertyOperationalState    = "OperationalState"
)

// hook environment keys
const (
	EnvInterface           = "IFACE"
	EnvState               = "STATE"
	EnvAdministrativeState = "AdministrativeState"
	EnvOperationalState    = "OperationalState"
	EnvAddress             = "ADDR"
	EnvIPv4Addresses       = "IP_ADDRS"
	EnvIPv6Addresses       = "IP6_ADDRS"
	EnvESSID               = "ESSID"
	EnvJSON                = "json"

	EnvWireGuardPublicKey  = "WG_PUBLIC_KEY"
	EnvWireGuardListenPort = "WG_LISTEN_PORT"
	EnvWireGuardPeers      = "WG_PEERS"
)

// keys synthesized into the json detail passed to hooks
const (
	DetailKeyType    = "Type"
	DetailKeyAddress = "Address"
	DetailKeyESSID   = "ESSID"
)

// DetailListKeys are printed by networkctl with one item per line, their
// continuation lines are separate values instead of a wrapped value
var DetailListKeys = map[string]struct{}{
	DetailKeyAddress: {},
	"Gateway":        {},
	"DNS":            {},
	"NTP":            {},
	"Search Domains": {},
	"Route Domains":  {},
}
