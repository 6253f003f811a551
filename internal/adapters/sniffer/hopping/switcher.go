package hopping

import (
	"fmt"
	"os/exec"
	"strconv"
)

// ChannelSwitcher tunes an interface.
type ChannelSwitcher interface {
	SetChannel(iface string, channel int) error
}

// LinuxChannelSwitcher tunes through the iw command.
type LinuxChannelSwitcher struct {
	Path string
}

func NewLinuxChannelSwitcher() *LinuxChannelSwitcher {
	return &LinuxChannelSwitcher{Path: "iw"}
}

func (s *LinuxChannelSwitcher) SetChannel(iface string, channel int) error {
	out, err := exec.Command(s.Path, iface, "set", "channel", strconv.Itoa(channel)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to set channel %d on %s: %w (%s)", channel, iface, err, out)
	}
	return nil
}
