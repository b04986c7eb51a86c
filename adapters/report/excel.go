package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"researchdesk/models"
	"researchdesk/ports"
)

// ExcelExporter renders the session's insights as a workbook, one
// sheet per provider, for analysts who want the raw list rather than
// the prose report.
type ExcelExporter struct{}

// NewExcelExporter creates the workbook exporter.
func NewExcelExporter() *ExcelExporter { return &ExcelExporter{} }

// Build renders the insights workbook bytes.
func (e *ExcelExporter) Build(input ports.ReportInput) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		result *models.ProviderResult
	}{
		{"OpenAI", input.OpenAIResult},
		{"Gemini", input.GeminiResult},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return nil, fmt.Errorf("adding sheet %s: %w", sheet.name, err)
			}
		}
		if err := writeSheet(f, sheet.name, sheet.result); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, result *models.ProviderResult) error {
	set := func(cell string, value interface{}) error {
		return f.SetCellValue(name, cell, value)
	}

	if err := set("A1", "Summary"); err != nil {
		return err
	}
	if result == nil {
		return set("B1", "no results")
	}
	if err := set("B1", result.Summary); err != nil {
		return err
	}

	if err := set("A3", "Insights"); err != nil {
		return err
	}
	for i, insight := range result.Insights {
		if err := set(fmt.Sprintf("A%d", 4+i), insight); err != nil {
			return err
		}
	}

	row := 5 + len(result.Insights)
	if len(result.Sources) > 0 {
		if err := set(fmt.Sprintf("A%d", row), "Sources"); err != nil {
			return err
		}
		for i, source := range result.Sources {
			if err := set(fmt.Sprintf("A%d", row+1+i), source.Title); err != nil {
				return err
			}
			if err := set(fmt.Sprintf("B%d", row+1+i), source.URL); err != nil {
				return err
			}
		}
	}
	return nil
}
