package export

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/pitchside/auctioneer/internal/auction"
	"github.com/pitchside/auctioneer/internal/models"
)

func TestWorkbook(t *testing.T) {
	t.Parallel()

	snap := auction.Snapshot{
		Players: []models.Player{
			{ID: uuid.New(), Name: "Kohli", Role: "Batsman", BasePrice: 1000, SoldTo: "captain1", SoldPrice: 2500},
			{ID: uuid.New(), Name: "Bumrah", Role: "Bowler", BasePrice: 800, SoldTo: models.SoldToUnsold},
		},
		Captain1Team: []models.Player{
			{Name: "Kohli", Role: "Batsman", BasePrice: 1000, SoldPrice: 2500},
		},
		Captain1Balance: 2500,
		Captain2Balance: 5000,
		AuctionRound:    2,
		AuctionEnded:    true,
	}

	data, err := Workbook(snap)
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Summary", "Captain 1", "Captain 2"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	if got, _ := f.GetCellValue("Captain 1", "A2"); got != "Kohli" {
		t.Errorf("roster A2 = %q, want Kohli", got)
	}
	if got, _ := f.GetCellValue("Captain 1", "D2"); got != "2500" {
		t.Errorf("roster D2 = %q, want 2500", got)
	}

	// The unsold lot lands in the summary table, the sold one does not.
	if got, _ := f.GetCellValue("Summary", "A7"); got != "Bumrah" {
		t.Errorf("summary A7 = %q, want Bumrah", got)
	}
	if got, _ := f.GetCellValue("Summary", "A8"); got != "" {
		t.Errorf("summary A8 = %q, want empty", got)
	}
	if got, _ := f.GetCellValue("Summary", "B1"); got != "2" {
		t.Errorf("rounds = %q, want 2", got)
	}
}

func TestWorkbook_EmptySession(t *testing.T) {
	t.Parallel()

	data, err := Workbook(auction.Snapshot{})
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue("Captain 1", "A3"); got != "Total spent" {
		t.Errorf("empty roster footer = %q", got)
	}
}
