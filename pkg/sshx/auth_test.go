package sshx

import (
	"context"
	"testing"

	"github.com/panda-cat/netdev-dep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClientConfigKeepsDefaultAlgorithms(t *testing.T) {
	dev := &types.Device{
		Host:       "10.0.0.1",
		Username:   "admin",
		Password:   "pw",
		DeviceType: "cisco_ios",
	}

	cfg, err := BuildClientConfig(context.Background(), dev, AuthOptions{})
	require.NoError(t, err)

	// the modern defaults must stay on offer, the legacy names only
	// extend the list
	assert.Contains(t, cfg.KeyExchanges, "curve25519-sha256")
	assert.Contains(t, cfg.KeyExchanges, "diffie-hellman-group14-sha1")
	assert.Contains(t, cfg.KeyExchanges, "diffie-hellman-group1-sha1")
	assert.Less(t,
		indexOf(cfg.KeyExchanges, "curve25519-sha256"),
		indexOf(cfg.KeyExchanges, "diffie-hellman-group1-sha1"))

	assert.Contains(t, cfg.Ciphers, "aes128-gcm@openssh.com")
	assert.Contains(t, cfg.Ciphers, "chacha20-poly1305@openssh.com")
	assert.Contains(t, cfg.Ciphers, "aes128-ctr")
	assert.Contains(t, cfg.Ciphers, "aes256-cbc")
	assert.Contains(t, cfg.Ciphers, "3des-cbc")
}

func TestAppendMissing(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, appendMissing([]string{"a", "b"}, "b", "c"))
	assert.Equal(t, []string{"a"}, appendMissing(nil, "a"))
}

func indexOf(list []string, s string) int {
	for i, x := range list {
		if x == s {
			return i
		}
	}
	return -1
}
