package args

// ExecFlags controls how the command batch is executed.
type ExecFlags struct {
	Threads     int    `group:"exec" short:"t" default:"0" help:"Maximum number of devices worked on concurrently. Defaults to the number of CPUs, at least 4 and at most 900."`
	ConfigSet   bool   `group:"exec" help:"Send the inventory commands in configuration mode instead of running them one by one"`
	Destination string `group:"exec" short:"d" default:"." help:"Directory to write per-device results and error.log into"`
	Debug       bool   `group:"exec" help:"Write the raw session transcript of all devices to session.log in the destination directory"`
}
