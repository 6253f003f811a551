package driver

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Runner executes a system command and returns its combined output.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Driver prepares wireless interfaces for capture through ip and iw.
type Driver struct {
	run Runner
}

// New returns a driver. A nil runner executes the real commands.
func New(run Runner) *Driver {
	if run == nil {
		run = execRunner
	}
	return &Driver{run: run}
}

func (d *Driver) cmd(name string, args ...string) error {
	out, err := d.run(name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// EnableMonitorMode takes the interface down, switches it to monitor type
// and brings it back up.
func (d *Driver) EnableMonitorMode(iface string) error {
	slog.Info("Enabling monitor mode", "interface", iface)
	if err := d.cmd("ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := d.cmd("iw", iface, "set", "type", "monitor"); err != nil {
		slog.Warn("If the device is busy, stop NetworkManager and wpa_supplicant (airmon-ng check kill) and try again", "interface", iface)
		return err
	}
	return d.cmd("ip", "link", "set", iface, "up")
}

// DisableMonitorMode puts the interface back into managed mode. Failures are
// logged, restoration carries on.
func (d *Driver) DisableMonitorMode(iface string) {
	slog.Info("Restoring managed mode", "interface", iface)
	for _, args := range [][]string{
		{"ip", "link", "set", iface, "down"},
		{"iw", iface, "set", "type", "managed"},
		{"ip", "link", "set", iface, "up"},
	} {
		if err := d.cmd(args[0], args[1:]...); err != nil {
			slog.Warn("Restore step failed", "error", err)
		}
	}
}

// SupportedChannels lists the enabled channels of the radio behind iface.
func (d *Driver) SupportedChannels(iface string) ([]int, error) {
	out, err := d.run("iw", "dev")
	if err != nil {
		return nil, fmt.Errorf("iw dev: %w", err)
	}
	phy, err := phyFor(out, iface)
	if err != nil {
		return nil, err
	}

	out, err = d.run("iw", "phy", phy, "info")
	if err != nil {
		return nil, fmt.Errorf("iw phy %s info: %w", phy, err)
	}
	return parseChannels(out), nil
}

// phyFor finds the wiphy owning iface in `iw dev` output, "phy#0" becomes
// "phy0".
func phyFor(out []byte, iface string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	current := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "phy#"):
			current = strings.Replace(line, "#", "", 1)
		case line == "Interface "+iface && current != "":
			return current, nil
		}
	}
	return "", fmt.Errorf("interface %s not found in iw dev output", iface)
}

var reChannel = regexp.MustCompile(`\[([0-9]+)\]`)

// parseChannels reads the Frequencies blocks of `iw phy info`, e.g.
// "* 2412 MHz [1] (20.0 dBm)". Disabled channels are skipped.
func parseChannels(out []byte) []int {
	var channels []int
	inFrequencies := false

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "Frequencies:" {
			inFrequencies = true
			continue
		}
		if !inFrequencies {
			continue
		}
		if !strings.HasPrefix(line, "*") {
			inFrequencies = false
			continue
		}
		if strings.Contains(line, "(disabled)") {
			continue
		}
		if m := reChannel.FindStringSubmatch(line); len(m) > 1 {
			if ch, err := strconv.Atoi(m[1]); err == nil {
				channels = append(channels, ch)
			}
		}
	}
	return channels
}
