package sshx

import (
	"os"
	"path/filepath"

	"github.com/panda-cat/netdev-dep/pkg/types"
	"github.com/pkg/errors"
	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
)

func setHostKeyPolicy(cfg *ssh.ClientConfig, dev *types.Device, opts AuthOptions) error {
	if !opts.StrictHostKeys {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
		return nil
	}

	file := opts.KnownHostsFile
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}

	kh, err := knownhosts.New(file)
	if err != nil {
		return errors.Wrapf(err, "failed to load known_hosts from %s", file)
	}

	cfg.HostKeyCallback = ssh.HostKeyCallback(kh)
	// restrict offered algorithms to what we actually know for the host
	if algos := kh.HostKeyAlgorithms(dev.Addr()); len(algos) != 0 {
		cfg.HostKeyAlgorithms = algos
	}
	return nil
}
