package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSSHPort = 22

	// DefaultReadTimeout is how long we wait for a prompt after
	// sending a command when the inventory does not override it.
	DefaultReadTimeout = 20 * time.Second
)

// Device is one row of the inventory.
type Device struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DeviceType string

	// Secret is the enable/super password for dialects that have a
	// privileged mode. Empty means the device is used as is.
	Secret string

	ReadTimeout time.Duration
	Commands    []string
}

// Addr returns the host:port dial address, applying the default ssh
// port when the inventory did not specify one.
func (d *Device) Addr() string {
	port := d.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

func (d *Device) Validate() error {
	var missing []string
	if d.Host == "" {
		missing = append(missing, "host")
	}
	if d.Username == "" {
		missing = append(missing, "username")
	}
	if d.Password == "" {
		missing = append(missing, "password")
	}
	if d.DeviceType == "" {
		missing = append(missing, "device_type")
	}
	if len(missing) != 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SplitCommands splits a ";" separated command list cell. Empty
// entries are dropped so trailing separators are harmless.
func SplitCommands(s string) []string {
	var ret []string
	for _, c := range strings.Split(s, ";") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		ret = append(ret, c)
	}
	return ret
}
