package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"arhat.dev/pkg/log"
	"github.com/joho/godotenv"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/networkctl"
	"arhat.dev/linkhook/pkg/util"
)

// LoadEnvFile reads extra hook environment from a dotenv file
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hook env file %s: %w", path, err)
	}

	return env, nil
}

// BuildEnv creates the environment for hooks of link entering state
func (r *Runner) BuildEnv(ctx context.Context, link networkctl.Link, state string) (map[string]string, error) {
	detail := r.status(ctx, link.Name)

	var essid string
	if link.Type == constant.LinkTypeWireless && r.essid != nil {
		essid = r.essid(ctx, link.Name)
	}

	addrs := detail.Get(constant.DetailKeyAddress)
	if len(addrs) == 0 && r.linkAddresses != nil {
		var err error
		addrs, err = r.linkAddresses(link.Name)
		if err != nil {
			r.logger.D("no address from kernel", log.String("ifname", link.Name), log.Error(err))
		}
	}
	ipv4, ipv6 := util.ClassifyAddresses(addrs)

	data := make(map[string]interface{}, detail.Len()+4)
	for _, k := range detail.Keys() {
		data[k] = detail.Get(k)
	}
	data[constant.DetailKeyType] = link.Type
	data[constant.EnvOperationalState] = link.Operational
	data[constant.EnvAdministrativeState] = link.Administrative
	if link.Type == constant.LinkTypeWireless {
		data[constant.DetailKeyESSID] = essid
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode interface detail: %w", err)
	}

	env := make(map[string]string, len(r.extraEnv)+12)
	for k, v := range r.extraEnv {
		env[k] = v
	}

	if link.Type == constant.LinkTypeWireGuard && r.wireguard != nil {
		wgEnv, err := r.wireguard(link.Name)
		if err != nil {
			r.logger.I("unable to inspect wireguard device", log.String("ifname", link.Name), log.Error(err))
		}

		for k, v := range wgEnv {
			env[k] = v
		}
	}

	var firstAddr string
	if fields := strings.Fields(detail.First(constant.DetailKeyAddress)); len(fields) != 0 {
		firstAddr = fields[0]
	}

	env[constant.EnvInterface] = link.Name
	env[constant.EnvState] = state
	env[constant.EnvAdministrativeState] = link.Administrative
	env[constant.EnvOperationalState] = link.Operational
	env[constant.EnvAddress] = firstAddr
	env[constant.EnvIPv4Addresses] = strings.Join(ipv4, " ")
	env[constant.EnvIPv6Addresses] = strings.Join(ipv6, " ")
	env[constant.EnvESSID] = essid
	env[constant.EnvJSON] = string(jsonData)

	return env, nil
}

func envList(env map[string]string) []string {
	ret := make([]string, 0, len(env))
	for k, v := range env {
		ret = append(ret, k+"="+v)
	}
	sort.Strings(ret)

	return ret
}
