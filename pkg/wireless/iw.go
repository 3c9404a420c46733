package wireless

import (
	"regexp"

	"arhat.dev/linkhook/pkg/constant"
)

func init() {
	Register(constant.IWCommand, iwArgs, iwExtract)
}

// `iw dev <ifname> link` prints `\tSSID: <name>` when associated
var iwSSIDRegex = regexp.MustCompile(`(?m)^\s*SSID: (.*)$`)

func iwArgs(ifname string) []string {
	return []string{"dev", ifname, "link"}
}

func iwExtract(out []byte) (string, bool) {
	m := iwSSIDRegex.FindSubmatch(out)
	if m == nil {
		return "", false
	}

	return string(m[1]), true
}
