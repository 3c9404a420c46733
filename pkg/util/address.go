package util

import (
	"fmt"
	"strings"

	"arhat.dev/linkhook/pkg/wrap/netlink"
)

// ClassifyAddresses splits address strings into ipv4 and ipv6 buckets
//
// entries like `192.168.1.2/24` or `fe80::1 on wlan0` are reduced to the
// bare address, loopback (127.*) and link-local (fe80:*) addresses are
// dropped, anything else is passed through without validation
func ClassifyAddresses(addrs []string) (ipv4, ipv6 []string) {
	ipv4, ipv6 = []string{}, []string{}
	for _, a := range addrs {
		addr := bareAddress(a)
		switch {
		case addr == "":
			continue
		case strings.Contains(addr, ":"):
			if strings.HasPrefix(strings.ToLower(addr), "fe80:") {
				continue
			}

			ipv6 = append(ipv6, addr)
		case strings.Contains(addr, "."):
			if strings.HasPrefix(addr, "127.") {
				continue
			}

			ipv4 = append(ipv4, addr)
		}
	}

	return ipv4, ipv6
}

func bareAddress(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return strings.SplitN(fields[0], "/", 2)[0]
}

// GetLinkAddresses lists addresses assigned to the link from the kernel
func GetLinkAddresses(ifname string) ([]string, error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("failed to find interface %s: %w", ifname, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("failed to check addresses of interface %s: %w", ifname, err)
	}

	var ret []string
	for _, addr := range addrs {
		if addr.IPNet == nil {
			continue
		}

		ret = append(ret, addr.IP.String())
	}

	return ret, nil
}
