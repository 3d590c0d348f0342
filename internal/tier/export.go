// AngelaMos | 2026
// export.go

package tier

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Tiers"

// ExportTier is the exported shape of a tier. Custom inputs stay out of it.
type ExportTier struct {
	Label    string  `json:"label"`
	MinValue int     `json:"minValue"`
	Default  bool    `json:"default"`
	New      Pricing `json:"new"`
	Used     Pricing `json:"used"`
}

func ToExportTiers(tiers []Tier) []ExportTier {
	out := make([]ExportTier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, ExportTier{
			Label:    t.Label,
			MinValue: t.MinValue,
			Default:  t.Default,
			New:      t.New,
			Used:     t.Used,
		})
	}
	return out
}

// ExportJSON renders tiers as a two space indented JSON array in order.
func ExportJSON(tiers []Tier) ([]byte, error) {
	doc, err := json.MarshalIndent(ToExportTiers(tiers), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return doc, nil
}

func ParseExport(doc string) ([]ExportTier, error) {
	var tiers []ExportTier
	if err := json.Unmarshal([]byte(doc), &tiers); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return tiers, nil
}

var xlsxHeader = []any{
	"Label",
	"Min Score",
	"Default",
	"New Finance Captive",
	"New Finance Non-Captive",
	"New Lease Captive",
	"New Lease Non-Captive",
	"Used Finance Captive",
	"Used Finance Non-Captive",
	"Used Lease Captive",
	"Used Lease Non-Captive",
}

// ExportXLSX builds a single sheet workbook with one row per exported tier.
func ExportXLSX(tiers []ExportTier) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		_ = f.Close() //nolint:errcheck // cleanup on build failure
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := xlsxHeader
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		_ = f.Close() //nolint:errcheck // cleanup on build failure
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, t := range tiers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close() //nolint:errcheck // cleanup on build failure
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		row := []any{
			t.Label,
			t.MinValue,
			t.Default,
			t.New.Finance.Captive,
			t.New.Finance.NonCaptive,
			t.New.Lease.Captive,
			t.New.Lease.NonCaptive,
			t.Used.Finance.Captive,
			t.Used.Finance.NonCaptive,
			t.Used.Lease.Captive,
			t.Used.Lease.NonCaptive,
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			_ = f.Close() //nolint:errcheck // cleanup on build failure
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	return f, nil
}

func WriteXLSX(w io.Writer, result *ExportResult) error {
	tiers, err := ParseExport(result.Document)
	if err != nil {
		return err
	}

	f, err := ExportXLSX(tiers)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // close after write

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
