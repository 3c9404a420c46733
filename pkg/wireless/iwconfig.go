package wireless

import (
	"regexp"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/networkctl"
)

func init() {
	Register(constant.IWConfigCommand, iwconfigArgs, iwconfigExtract)
}

var iwconfigESSIDRegex = regexp.MustCompile(`ESSID:"((?:[^"\\]|\\.)*)"`)

func iwconfigArgs(ifname string) []string {
	return []string{ifname}
}

func iwconfigExtract(out []byte) (string, bool) {
	m := iwconfigESSIDRegex.FindSubmatch(out)
	if m == nil {
		return "", false
	}

	return networkctl.Unquote(string(m[1])), true
}
