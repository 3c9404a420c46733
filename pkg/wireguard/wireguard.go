package wireguard

import (
	"fmt"
	"strconv"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"arhat.dev/linkhook/pkg/constant"
)

// DeviceEnv inspects the wireguard device ifname and returns hook env
func DeviceEnv(ifname string) (map[string]string, error) {
	c, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open wgctrl: %w", err)
	}
	defer func() {
		_ = c.Close()
	}()

	dev, err := c.Device(ifname)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect wireguard device %s: %w", ifname, err)
	}

	return FormatDeviceEnv(dev), nil
}

func FormatDeviceEnv(dev *wgtypes.Device) map[string]string {
	peers := make([]string, 0, len(dev.Peers))
	for _, p := range dev.Peers {
		peers = append(peers, p.PublicKey.String())
	}

	return map[string]string{
		constant.EnvWireGuardPublicKey:  dev.PublicKey.String(),
		constant.EnvWireGuardListenPort: strconv.FormatInt(int64(dev.ListenPort), 10),
		constant.EnvWireGuardPeers:      strings.Join(peers, " "),
	}
}
