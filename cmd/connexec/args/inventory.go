package args

// InventoryFlags controls where the device inventory is read from.
type InventoryFlags struct {
	Inventory string `group:"inventory" short:"i" required:"true" help:"Path to the device inventory workbook (.xlsx)"`
	Sheet     string `group:"inventory" help:"Worksheet to read devices from. Defaults to the first sheet in the workbook."`
}
