package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"driverops/internal/model"
)

// ExportService builds spreadsheet reports
type ExportService struct {
	costs    *CostService
	earnings *EarningsService
	targets  *TargetService
	clock    Clock
}

// NewExportService creates a new export service
func NewExportService(costs *CostService, earnings *EarningsService, targets *TargetService, clock Clock) *ExportService {
	return &ExportService{costs: costs, earnings: earnings, targets: targets, clock: clock}
}

// LedgerWorkbook writes the month's costs, earnings and a summary sheet
func (s *ExportService) LedgerWorkbook(year int, month time.Month) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	costSheet := "Costs"
	f.SetSheetName("Sheet1", costSheet)
	costHeaders := []string{"Date", "Category", "Description", "Type", "Fixed", "Value"}
	for i, header := range costHeaders {
		f.SetCellValue(costSheet, fmt.Sprintf("%c1", 'A'+i), header)
	}
	var costValues []float64
	row := 2
	for _, c := range s.costs.CostsForMonth(year, month) {
		f.SetCellValue(costSheet, fmt.Sprintf("A%d", row), s.clock.Local(c.Date).Format(model.DateLayout))
		f.SetCellValue(costSheet, fmt.Sprintf("B%d", row), c.CategoryName)
		f.SetCellValue(costSheet, fmt.Sprintf("C%d", row), c.Description)
		f.SetCellValue(costSheet, fmt.Sprintf("D%d", row), string(c.TypeSnapshot))
		f.SetCellValue(costSheet, fmt.Sprintf("E%d", row), c.IsFixed)
		f.SetCellValue(costSheet, fmt.Sprintf("F%d", row), c.Value)
		costValues = append(costValues, c.Value)
		row++
	}
	f.SetColWidth(costSheet, "A", "B", 14)
	f.SetColWidth(costSheet, "C", "C", 36)

	earningsSheet := "Earnings"
	if _, err := f.NewSheet(earningsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	earningHeaders := []string{"Date", "App", "Gross", "Variable costs", "Net", "Hours", "Km"}
	for i, header := range earningHeaders {
		f.SetCellValue(earningsSheet, fmt.Sprintf("%c1", 'A'+i), header)
	}
	var netValues []float64
	row = 2
	for _, e := range s.earnings.List() {
		d := s.clock.Local(e.Date)
		if d.Year() != year || d.Month() != month {
			continue
		}
		f.SetCellValue(earningsSheet, fmt.Sprintf("A%d", row), d.Format(model.DateLayout))
		f.SetCellValue(earningsSheet, fmt.Sprintf("B%d", row), e.AppName)
		f.SetCellValue(earningsSheet, fmt.Sprintf("C%d", row), e.GrossEarnings)
		f.SetCellValue(earningsSheet, fmt.Sprintf("D%d", row), e.TotalVariableCosts)
		f.SetCellValue(earningsSheet, fmt.Sprintf("E%d", row), e.NetEarnings)
		if e.HoursWorked != nil {
			f.SetCellValue(earningsSheet, fmt.Sprintf("F%d", row), *e.HoursWorked)
		}
		if e.KmDriven != nil {
			f.SetCellValue(earningsSheet, fmt.Sprintf("G%d", row), *e.KmDriven)
		}
		netValues = append(netValues, e.NetEarnings)
		row++
	}
	f.SetColWidth(earningsSheet, "A", "B", 14)

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	monthlyTotal := s.costs.MonthlyCostTotal(year, month)
	net := sum(netValues...)
	summary := [][2]interface{}{
		{"Month", fmt.Sprintf("%04d-%02d", year, int(month))},
		{"Ledger costs", sum(costValues...)},
		{"Monthly cost (with projections)", monthlyTotal},
		{"Cost per hour", round2(s.targets.CostPerHour(year, month))},
		{"Net earnings", net},
		{"Result", round2(sum(net, -monthlyTotal))},
	}
	for i, line := range summary {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), line[0])
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), line[1])
	}
	f.SetColWidth(summarySheet, "A", "A", 34)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
