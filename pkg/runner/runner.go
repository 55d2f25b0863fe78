package runner

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/panda-cat/netdev-dep/pkg/dialect"
	"github.com/panda-cat/netdev-dep/pkg/report"
	"github.com/panda-cat/netdev-dep/pkg/sshx"
	"github.com/panda-cat/netdev-dep/pkg/status"
	"github.com/panda-cat/netdev-dep/pkg/types"
	"github.com/panda-cat/netdev-dep/pkg/utils"
)

// DefaultThreads mirrors the worker count the tool always used: one
// worker per CPU, at least 4, capped at 900.
func DefaultThreads() int {
	n := runtime.NumCPU()
	if n < 4 {
		n = 4
	}
	if n > 900 {
		n = 900
	}
	return n
}

// Connector executes the command list on a single device.
type Connector interface {
	Execute(ctx context.Context, dev *types.Device, configSet bool) (hostname string, output string, err error)
}

// SSHConnector is the real Connector, driving devices through the
// shared ssh pool.
type SSHConnector struct {
	Pool *sshx.Pool
	Auth sshx.AuthOptions

	// SessionLog receives the raw session transcripts when debug
	// logging is enabled.
	SessionLog io.Writer
}

func (c *SSHConnector) Execute(ctx context.Context, dev *types.Device, configSet bool) (string, string, error) {
	d, err := dialect.Get(dev.DeviceType)
	if err != nil {
		return "", "", err
	}

	cfg, err := sshx.BuildClientConfig(ctx, dev, c.Auth)
	if err != nil {
		return "", "", err
	}

	ps, err := c.Pool.GetSession(ctx, dev, cfg)
	if err != nil {
		return "", "", err
	}
	defer ps.Close()

	sh, err := sshx.NewShell(ctx, ps.Session, d, dev.ReadTimeout, c.SessionLog)
	if err != nil {
		return "", "", err
	}
	defer sh.Close()

	if err := sh.Enable(ctx, dev.Secret); err != nil {
		return sh.Hostname(), "", err
	}
	if err := sh.DisablePager(ctx); err != nil {
		return sh.Hostname(), "", err
	}

	var out string
	if configSet {
		out, err = sh.ConfigSet(ctx, dev.Commands)
	} else {
		out, err = sh.RunAll(ctx, dev.Commands)
	}
	return sh.Hostname(), out, err
}

type DeviceResult struct {
	Device   *types.Device
	Hostname string

	// ResultPath is the saved result file, empty for failed or
	// skipped devices.
	ResultPath string
	Skipped    bool
	Err        error
}

type Summary struct {
	Results []DeviceResult

	Succeeded int
	Failed    int
	Skipped   int
}

type Runner struct {
	Connector Connector
	Writer    *report.Writer

	MaxWorkers int
	ConfigSet  bool
}

// Run executes the command lists on all devices concurrently. Per
// device failures never abort the batch; they end up in the summary
// and in error.log.
func (r *Runner) Run(ctx context.Context, devices []*types.Device) (*Summary, error) {
	maxWorkers := r.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultThreads()
	}

	st := status.StartWithOptions(ctx,
		status.WithTotal(len(devices)),
		status.WithStatus(fmt.Sprintf("Executing on %d devices", len(devices))),
	)

	results := make([]DeviceResult, len(devices))

	wp := utils.NewWorkerPoolWithErrors(maxWorkers)
	for i, dev := range devices {
		i := i
		dev := dev
		wp.Submit(func() error {
			results[i] = r.runOne(ctx, dev)
			st.Increment()
			return nil
		})
	}
	err := wp.StopWait(false)

	summary := &Summary{
		Results: results,
	}
	for _, res := range summary.Results {
		switch {
		case res.Skipped:
			summary.Skipped++
		case res.Err != nil:
			summary.Failed++
		default:
			summary.Succeeded++
		}
	}

	if summary.Failed == 0 {
		st.Success()
	} else {
		st.Warning()
	}
	status.Infof(ctx, "Done: %d succeeded, %d failed, %d skipped", summary.Succeeded, summary.Failed, summary.Skipped)

	if err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, dev *types.Device) DeviceResult {
	res := DeviceResult{Device: dev}

	if len(dev.Commands) == 0 {
		res.Skipped = true
		status.Warningf(ctx, "%s: no commands, skipped", dev.Host)
		return res
	}
	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	hostname, output, err := r.Connector.Execute(ctx, dev, r.ConfigSet)
	res.Hostname = hostname
	if err != nil {
		res.Err = err
		status.Warningf(ctx, "%s: %s", dev.Host, report.Redact(err.Error()))
		if logErr := r.Writer.LogError(dev.Host, err.Error()); logErr != nil {
			status.Warningf(ctx, "%s: failed to write error.log: %v", dev.Host, logErr)
		}
		return res
	}

	path, err := r.Writer.SaveResult(dev.Host, hostname, output)
	if err != nil {
		res.Err = err
		status.Warningf(ctx, "%s: %v", dev.Host, err)
		_ = r.Writer.LogError(dev.Host, err.Error())
		return res
	}
	res.ResultPath = path
	return res
}
