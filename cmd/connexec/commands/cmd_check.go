package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/panda-cat/netdev-dep/cmd/connexec/args"
	"github.com/panda-cat/netdev-dep/pkg/inventory"
	"github.com/panda-cat/netdev-dep/pkg/utils"
)

type checkCmd struct {
	args.InventoryFlags
}

func (cmd *checkCmd) Help() string {
	return `Loads the workbook with the same validation as the run command and
prints the parsed devices without connecting to anything. Use this to
verify an inventory before a change window.`
}

func (cmd *checkCmd) Run(ctx context.Context) error {
	devices, err := inventory.LoadFile(cmd.Inventory, cmd.Sheet)
	if err != nil {
		return err
	}

	var table utils.PrettyTable
	table.AddRow("HOST", "TYPE", "COMMANDS")
	for _, dev := range devices {
		host := dev.Host
		if dev.Port != 0 {
			host += ":" + strconv.Itoa(dev.Port)
		}
		table.AddRow(host, dev.DeviceType, strings.Join(dev.Commands, "; "))
	}
	_, _ = os.Stdout.WriteString(table.Render([]int{60, 20}))

	fmt.Printf("Inventory ok, %d devices\n", len(devices))
	return nil
}
