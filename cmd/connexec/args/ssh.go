package args

import "time"

// SshFlags controls authentication and host key handling for all
// devices. Inventory passwords are always tried first.
type SshFlags struct {
	KeyFile        string        `group:"ssh" help:"Identity file offered to all devices in addition to the inventory password"`
	UseAgent       bool          `group:"ssh" help:"Also offer identities from a running ssh-agent"`
	KnownHosts     bool          `group:"ssh" help:"Verify device host keys against a known_hosts file instead of accepting any key"`
	KnownHostsFile string        `group:"ssh" help:"known_hosts file to verify against. Implies --known-hosts. Defaults to ~/.ssh/known_hosts."`
	Timeout        time.Duration `group:"ssh" default:"10s" help:"Timeout for the TCP connect and ssh handshake of each device"`
}
