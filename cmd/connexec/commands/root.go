package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/panda-cat/netdev-dep/pkg/status"
	"github.com/panda-cat/netdev-dep/pkg/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const rootShort = "connexec batch-executes command lists on network devices over ssh"

const rootLong = rootShort + `

Devices, credentials and the commands to run are read from an Excel
workbook. Each device is worked on concurrently and gets its own result
file, failures are collected in error.log.`

type cli struct {
	Verbosity  string `group:"global" short:"v" default:"info" help:"Log level (trace, debug, info, warn, error)"`
	NoProgress bool   `group:"global" help:"Disable the live progress output even when stderr is a terminal"`
	NoColor    bool   `group:"global" help:"Disable colored log output"`

	Run     runCmd     `cmd:"" help:"Run the inventory command lists on all devices"`
	Check   checkCmd   `cmd:"" help:"Validate the inventory and print the parsed devices"`
	Version versionCmd `cmd:"" help:"Print the connexec version"`
}

var flagGroups = []groupInfo{
	{group: "inventory", title: "Inventory arguments:", description: "Define where devices and their command lists are read from."},
	{group: "exec", title: "Execution arguments:", description: "Control concurrency and how results are written."},
	{group: "ssh", title: "SSH arguments:", description: "Control authentication and host key verification."},
	{group: "global", title: "Global arguments:"},
}

func (c *cli) setupLogs() error {
	lvl, err := log.ParseLevel(c.Verbosity)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Verbosity, err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	if c.NoColor {
		log.SetFormatter(&log.TextFormatter{DisableColors: true})
	}
	return nil
}

func (c *cli) buildStatusHandler(ctx context.Context) status.StatusHandler {
	trace := log.IsLevelEnabled(log.TraceLevel)
	if !c.NoProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		return status.NewMultiLineStatusHandler(ctx, os.Stderr, trace)
	}
	return status.NewSimpleStatusHandler(func(level status.Level, message string) {
		switch level {
		case status.LevelError:
			log.Error(message)
		case status.LevelWarning:
			log.Warning(message)
		default:
			log.Info(message)
		}
	}, trace)
}

func initViper() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".connexec"))
	}
	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warningf("failed to read config file: %v", err)
		}
	}
}

// Execute runs the CLI and exits the process on error.
func Execute() {
	err := ExecuteWithArgs(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}
}

func ExecuteWithArgs(args []string) error {
	c := &cli{}
	rootCmd, err := buildRootCobraCmd(c, "connexec", rootShort, rootLong, flagGroups)
	if err != nil {
		panic(err)
	}
	rootCmd.Version = version.Version
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)

	var sh status.StatusHandler = &status.NoopStatusHandler{}
	defer func() {
		sh.Stop()
	}()

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		err := copyViperValuesToCobraCmd(cmd)
		if err != nil {
			return err
		}
		err = c.setupLogs()
		if err != nil {
			return err
		}
		sh = c.buildStatusHandler(cmd.Context())
		cmd.SetContext(status.NewContext(cmd.Context(), sh))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initViper()

	err = rootCmd.ExecuteContext(ctx)
	if err != nil {
		sh.Flush()
		sh.Stop()
		sh = &status.NoopStatusHandler{}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}
