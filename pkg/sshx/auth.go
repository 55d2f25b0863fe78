package sshx

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/panda-cat/netdev-dep/pkg/status"
	"github.com/panda-cat/netdev-dep/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"
)

// AuthOptions control how client configs are built for all devices of
// a run. Per-device credentials come from the inventory.
type AuthOptions struct {
	// KeyFile is an explicit identity file used for all devices.
	KeyFile string

	// UseAgent adds ssh-agent identities as an auth fallback.
	UseAgent bool

	// StrictHostKeys enables known_hosts verification. Default is to
	// accept any host key, matching the behavior of the usual device
	// automation stacks.
	StrictHostKeys bool
	// KnownHostsFile overrides ~/.ssh/known_hosts.
	KnownHostsFile string

	ConnectTimeout time.Duration
}

const defaultConnectTimeout = 10 * time.Second

// BuildClientConfig assembles the ssh client config for one device.
// Password auth comes first (the inventory is the primary credential
// source), public keys and agent identities serve as fallback.
func BuildClientConfig(ctx context.Context, dev *types.Device, opts AuthOptions) (*ssh.ClientConfig, error) {
	timeout := opts.ConnectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	var auths []ssh.AuthMethod
	if dev.Password != "" {
		auths = append(auths, ssh.Password(dev.Password))
		// some network devices only offer keyboard-interactive, answer
		// every challenge with the password
		auths = append(auths, ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = dev.Password
			}
			return answers, nil
		}))
	}

	signers, err := collectSigners(ctx, dev.Host, opts)
	if err != nil {
		return nil, err
	}
	if len(signers) != 0 {
		auths = append(auths, ssh.PublicKeys(signers...))
	}

	if len(auths) == 0 {
		return nil, errors.Errorf("no usable auth method for %s", dev.Host)
	}

	cfg := &ssh.ClientConfig{
		User:    dev.Username,
		Auth:    auths,
		Timeout: timeout,
	}

	// extend the default algorithm lists with legacy kex/ciphers that
	// older network gear still requires and which the ssh package
	// knows but does not offer by default. Leaving the lists empty is
	// not an option here since a non-empty list replaces the defaults.
	var defaults ssh.Config
	defaults.SetDefaults()
	cfg.KeyExchanges = appendMissing(defaults.KeyExchanges,
		"diffie-hellman-group-exchange-sha256",
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group-exchange-sha1",
		"diffie-hellman-group1-sha1",
	)
	cfg.Ciphers = appendMissing(defaults.Ciphers,
		"aes128-cbc", "aes256-cbc", "3des-cbc",
	)

	err = setHostKeyPolicy(cfg, dev, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func collectSigners(ctx context.Context, host string, opts AuthOptions) ([]ssh.Signer, error) {
	var signers []ssh.Signer

	if opts.KeyFile != "" {
		signer, err := readKey(opts.KeyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read identity %s", opts.KeyFile)
		}
		signers = append(signers, signer)
	}

	if opts.UseAgent {
		agent, _, err := sshagent.New()
		if err != nil {
			// warn once per run, not once per device
			status.WarningOnce(ctx, "ssh-agent", fmt.Sprintf("no usable ssh agent: %v", err))
		} else {
			agentSigners, err := agent.Signers()
			if err != nil {
				logrus.Debugf("failed to get signers from ssh agent: %v", err)
			} else {
				signers = append(signers, agentSigners...)
			}
		}
	}

	for _, id := range ssh_config.GetAll(host, "IdentityFile") {
		signer, err := readKey(expandHomeDir(id))
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				logrus.Debugf("failed to read key %s from ssh config: %v", id, err)
			}
			continue
		}
		signers = append(signers, signer)
	}

	signers = append(signers, defaultIdentities()...)

	return signers, nil
}

func defaultIdentities() []ssh.Signer {
	u, err := user.Current()
	if err != nil {
		return nil
	}

	var signers []ssh.Signer
	for _, name := range []string{"id_rsa", "id_ecdsa", "id_ed25519"} {
		signer, err := readKey(filepath.Join(u.HomeDir, ".ssh", name))
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				logrus.Debugf("failed to read default identity %s: %v", name, err)
			}
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

func readKey(path string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(b)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func appendMissing(base []string, extra ...string) []string {
	ret := append([]string{}, base...)
	for _, e := range extra {
		found := false
		for _, b := range ret {
			if b == e {
				found = true
				break
			}
		}
		if !found {
			ret = append(ret, e)
		}
	}
	return ret
}

func expandHomeDir(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
