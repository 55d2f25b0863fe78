package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/panda-cat/netdev-dep/pkg/dialect"
	"github.com/panda-cat/netdev-dep/pkg/types"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var requiredColumns = []string{"host", "username", "password", "device_type"}

// LoadFile reads a device inventory from an .xlsx workbook. An empty
// sheet name selects the first sheet.
func LoadFile(path string, sheet string) ([]*types.Device, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open inventory %s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("inventory %s has no sheets", path)
		}
		sheet = sheets[0]
	} else {
		found := false
		for _, s := range f.GetSheetList() {
			if s == sheet {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet %q does not exist in %s", sheet, path)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", sheet)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if err := checkHeaders(headers); err != nil {
		return nil, err
	}

	var devices []*types.Device
	for i, row := range rows[1:] {
		rowIdx := i + 2

		cells := map[string]string{}
		empty := true
		for j, h := range headers {
			v := ""
			if j < len(row) {
				v = strings.TrimSpace(row[j])
			}
			if v != "" {
				empty = false
			}
			cells[h] = v
		}
		if empty {
			continue
		}

		dev, err := buildDevice(cells)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", rowIdx)
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func checkHeaders(headers []string) error {
	have := map[string]bool{}
	for _, h := range headers {
		have[h] = true
	}
	var missing []string
	for _, r := range requiredColumns {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func buildDevice(cells map[string]string) (*types.Device, error) {
	dev := &types.Device{
		Host:        cells["host"],
		Username:    cells["username"],
		Password:    cells["password"],
		DeviceType:  cells["device_type"],
		Secret:      cells["secret"],
		ReadTimeout: types.DefaultReadTimeout,
		Commands:    types.SplitCommands(cells["mult_command"]),
	}

	if err := dev.Validate(); err != nil {
		return nil, err
	}
	if _, err := dialect.Get(dev.DeviceType); err != nil {
		return nil, err
	}

	if v := cells["port"]; v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", v)
		}
		dev.Port = port
	}
	if v := cells["readtime"]; v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid readtime %q", v)
		}
		dev.ReadTimeout = time.Duration(secs) * time.Second
	}
	return dev, nil
}
