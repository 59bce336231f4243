package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pitchside/auctioneer/internal/auction"
	"github.com/pitchside/auctioneer/internal/models"
)

// Workbook renders the session results as an XLSX workbook: one sheet
// per captain roster plus a summary sheet with balances, unsold lots and
// rounds run.
func Workbook(snap auction.Snapshot) ([]byte, error) {
	f := excelize.NewFile()

	if err := writeSummary(f, snap); err != nil {
		return nil, err
	}
	if err := writeRoster(f, "Captain 1", snap.Captain1Team); err != nil {
		return nil, err
	}
	if err := writeRoster(f, "Captain 2", snap.Captain2Team); err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, snap auction.Snapshot) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	f.SetCellValue(sheet, "A1", "Rounds run")
	f.SetCellValue(sheet, "B1", snap.AuctionRound)
	f.SetCellValue(sheet, "A2", "Captain 1 balance remaining")
	f.SetCellValue(sheet, "B2", snap.Captain1Balance)
	f.SetCellValue(sheet, "A3", "Captain 2 balance remaining")
	f.SetCellValue(sheet, "B3", snap.Captain2Balance)
	f.SetCellValue(sheet, "A4", "Auction ended")
	f.SetCellValue(sheet, "B4", snap.AuctionEnded)

	headers := []string{"Unsold Player", "Role", "Base Price"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(sheet, cell, h)
	}

	row := 7
	for _, p := range snap.Players {
		if !p.Unsold() {
			continue
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.Role)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.BasePrice)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "C", 14)
	return nil
}

func writeRoster(f *excelize.File, sheet string, roster []models.Player) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []string{"Player", "Role", "Base Price", "Price Paid"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	var total int64
	for _, p := range roster {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.Role)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.BasePrice)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), p.SoldPrice)
		total += p.SoldPrice
		row++
	}

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row+1), "Total spent")
	f.SetCellValue(sheet, fmt.Sprintf("D%d", row+1), total)

	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "D", 14)
	return nil
}
