package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/panda-cat/netdev-dep/pkg/report"
	"github.com/panda-cat/netdev-dep/pkg/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	mutex sync.Mutex
	calls []string

	execute func(dev *types.Device, configSet bool) (string, string, error)
}

func (c *fakeConnector) Execute(ctx context.Context, dev *types.Device, configSet bool) (string, string, error) {
	c.mutex.Lock()
	c.calls = append(c.calls, dev.Host)
	c.mutex.Unlock()
	return c.execute(dev, configSet)
}

func testDevice(host string) *types.Device {
	return &types.Device{
		Host:       host,
		Username:   "admin",
		Password:   "pw",
		DeviceType: "cisco_ios",
		Commands:   []string{"show version"},
	}
}

func TestRunnerRun(t *testing.T) {
	dest := t.TempDir()
	conn := &fakeConnector{
		execute: func(dev *types.Device, configSet bool) (string, string, error) {
			assert.False(t, configSet)
			return "sw-" + dev.Host, "output of " + dev.Host, nil
		},
	}
	r := &Runner{
		Connector:  conn,
		Writer:     report.NewWriter(dest),
		MaxWorkers: 4,
	}

	devices := []*types.Device{testDevice("10.0.0.1"), testDevice("10.0.0.2")}
	summary, err := r.Run(context.Background(), devices)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, conn.calls, 2)

	// results keep inventory order regardless of scheduling
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "10.0.0.1", summary.Results[0].Device.Host)
	assert.Equal(t, "sw-10.0.0.1", summary.Results[0].Hostname)

	b, err := os.ReadFile(summary.Results[0].ResultPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "output of 10.0.0.1")
}

func TestRunnerPartialFailure(t *testing.T) {
	dest := t.TempDir()
	conn := &fakeConnector{
		execute: func(dev *types.Device, configSet bool) (string, string, error) {
			if dev.Host == "10.0.0.2" {
				return "", "", errors.New("auth failed: password=pw")
			}
			return "sw1", "ok", nil
		},
	}
	r := &Runner{
		Connector:  conn,
		Writer:     report.NewWriter(dest),
		MaxWorkers: 2,
	}

	devices := []*types.Device{testDevice("10.0.0.1"), testDevice("10.0.0.2"), testDevice("10.0.0.3")}
	summary, err := r.Run(context.Background(), devices)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Error(t, summary.Results[1].Err)
	assert.Empty(t, summary.Results[1].ResultPath)

	// the failure went to error.log, redacted
	b, err := os.ReadFile(filepath.Join(dest, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "10.0.0.2")
	assert.Contains(t, string(b), "password=***")
	assert.NotContains(t, string(b), "password=pw")
}

func TestRunnerSkipsDevicesWithoutCommands(t *testing.T) {
	dest := t.TempDir()
	conn := &fakeConnector{
		execute: func(dev *types.Device, configSet bool) (string, string, error) {
			return "sw1", "ok", nil
		},
	}
	r := &Runner{
		Connector:  conn,
		Writer:     report.NewWriter(dest),
		MaxWorkers: 1,
	}

	noCmds := testDevice("10.0.0.9")
	noCmds.Commands = nil

	summary, err := r.Run(context.Background(), []*types.Device{noCmds, testDevice("10.0.0.1")})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.True(t, summary.Results[0].Skipped)
	assert.Equal(t, []string{"10.0.0.1"}, conn.calls)
}

func TestRunnerConfigSet(t *testing.T) {
	dest := t.TempDir()
	conn := &fakeConnector{
		execute: func(dev *types.Device, configSet bool) (string, string, error) {
			assert.True(t, configSet)
			return "sw1", "ok", nil
		},
	}
	r := &Runner{
		Connector:  conn,
		Writer:     report.NewWriter(dest),
		MaxWorkers: 1,
		ConfigSet:  true,
	}

	_, err := r.Run(context.Background(), []*types.Device{testDevice("10.0.0.1")})
	require.NoError(t, err)
}

func TestRunnerCancelledContext(t *testing.T) {
	dest := t.TempDir()
	conn := &fakeConnector{
		execute: func(dev *types.Device, configSet bool) (string, string, error) {
			return "sw1", "ok", nil
		},
	}
	r := &Runner{
		Connector:  conn,
		Writer:     report.NewWriter(dest),
		MaxWorkers: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx, []*types.Device{testDevice("10.0.0.1")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Failed)
}

func TestDefaultThreads(t *testing.T) {
	n := DefaultThreads()
	assert.GreaterOrEqual(t, n, 4)
	assert.LessOrEqual(t, n, 900)
}

func TestRunnerSummaryLine(t *testing.T) {
	// summary counters must add up to the device count
	dest := t.TempDir()
	conn := &fakeConnector{
		execute: func(dev *types.Device, configSet bool) (string, string, error) {
			if strings.HasSuffix(dev.Host, ".2") {
				return "", "", errors.New("boom")
			}
			return "sw1", "ok", nil
		},
	}
	r := &Runner{
		Connector:  conn,
		Writer:     report.NewWriter(dest),
		MaxWorkers: 8,
	}

	devices := []*types.Device{testDevice("10.0.0.1"), testDevice("10.0.0.2"), testDevice("10.0.0.3")}
	summary, err := r.Run(context.Background(), devices)
	require.NoError(t, err)
	assert.Equal(t, len(devices), summary.Succeeded+summary.Failed+summary.Skipped)
}
