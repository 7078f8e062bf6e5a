package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/nerrad567/devicehub/internal/device"
)

// SheetName is the worksheet holding the device listing.
const SheetName = "Devices"

// ContentType is the MIME type of the workbook written by WriteDevices.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

// column describes one worksheet column.
type column struct {
	header string
	width  float64
	value  func(d *device.Details) any
}

var columns = []column{
	{"ID", 38, func(d *device.Details) any { return d.ID }},
	{"Name", 30, func(d *device.Details) any { return d.Name }},
	{"Type", 18, func(d *device.Details) any { return string(d.DeviceType) }},
	{"Enabled", 10, func(d *device.Details) any { return yesNo(d.IsEnabled) }},
	{"Operation System", 20, func(d *device.Details) any { return deref(d.OperationSystem) }},
	{"IP Address", 20, func(d *device.Details) any { return deref(d.IPAddress) }},
	{"Network Name", 20, func(d *device.Details) any { return deref(d.NetworkName) }},
	{"Battery %", 12, func(d *device.Details) any {
		if d.BatteryPercentage == nil {
			return nil
		}
		return *d.BatteryPercentage
	}},
	{"Created", 20, func(d *device.Details) any { return formatTime(d) }},
}

// WriteDevices writes list as a single-sheet workbook to w, one row per
// device in the given order, with a frozen bold header row.
func WriteDevices(w io.Writer, list []device.Details) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, col.header); err != nil {
			return fmt.Errorf("setting header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("styling header %s: %w", cell, err)
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("converting column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, col.width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	for r := range list {
		row := r + 2
		for i, col := range columns {
			v := col.value(&list[r])
			if v == nil || v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return fmt.Errorf("converting coordinates: %w", err)
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("setting cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Filename returns the attachment name for an export taken at unix time ts.
func Filename(ts int64) string {
	return "devices-" + strconv.FormatInt(ts, 10) + ".xlsx"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(d *device.Details) string {
	if d.CreatedAt.IsZero() {
		return ""
	}
	return d.CreatedAt.UTC().Format(timeLayout)
}
