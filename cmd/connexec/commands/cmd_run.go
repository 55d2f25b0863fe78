package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/panda-cat/netdev-dep/cmd/connexec/args"
	"github.com/panda-cat/netdev-dep/pkg/inventory"
	"github.com/panda-cat/netdev-dep/pkg/report"
	"github.com/panda-cat/netdev-dep/pkg/runner"
	"github.com/panda-cat/netdev-dep/pkg/sshx"
	"github.com/panda-cat/netdev-dep/pkg/status"
)

type runCmd struct {
	args.InventoryFlags
	args.ExecFlags
	args.SshFlags
}

func (cmd *runCmd) Help() string {
	return `The workbook must contain one device per row with at least the columns
host, username, password and device_type. Optional columns are port,
secret, readtime and mult_command (commands separated by ";").

Each device gets a result file named <host>_<hostname>.txt inside a
result_YYYYMMDD directory below the destination. Failed devices are
appended to error.log with passwords redacted.`
}

func (cmd *runCmd) Run(ctx context.Context) error {
	devices, err := inventory.LoadFile(cmd.Inventory, cmd.Sheet)
	if err != nil {
		return err
	}
	status.Infof(ctx, "Loaded %d devices from %s", len(devices), cmd.Inventory)

	err = os.MkdirAll(cmd.Destination, 0o755)
	if err != nil {
		return err
	}

	var sessionLog io.Writer
	if cmd.Debug {
		f, err := os.OpenFile(filepath.Join(cmd.Destination, "session.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		sessionLog = &syncWriter{w: f}
	}

	auth := sshx.AuthOptions{
		KeyFile:        cmd.KeyFile,
		UseAgent:       cmd.UseAgent,
		StrictHostKeys: cmd.KnownHosts || cmd.KnownHostsFile != "",
		KnownHostsFile: cmd.KnownHostsFile,
		ConnectTimeout: cmd.Timeout,
	}

	r := &runner.Runner{
		Connector: &runner.SSHConnector{
			Pool:       &sshx.Pool{},
			Auth:       auth,
			SessionLog: sessionLog,
		},
		Writer:     report.NewWriter(cmd.Destination),
		MaxWorkers: cmd.Threads,
		ConfigSet:  cmd.ConfigSet,
	}

	summary, err := r.Run(ctx, devices)
	if err != nil {
		return err
	}
	if summary.Failed != 0 {
		return fmt.Errorf("%d of %d devices failed, see %s", summary.Failed, len(devices), filepath.Join(cmd.Destination, "error.log"))
	}
	return nil
}

// syncWriter serializes transcript writes from concurrent sessions.
type syncWriter struct {
	m sync.Mutex
	w io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.w.Write(p)
}
