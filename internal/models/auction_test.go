package models

import "testing"

func TestTeamID(t *testing.T) {
	t.Parallel()

	if !TeamCaptain1.Valid() || !TeamCaptain2.Valid() {
		t.Error("captain ids not valid")
	}
	if TeamID("umpire").Valid() || TeamID("").Valid() {
		t.Error("non-captain id valid")
	}
	if TeamCaptain1.Other() != TeamCaptain2 || TeamCaptain2.Other() != TeamCaptain1 {
		t.Error("Other does not flip captains")
	}
}

func TestPlayerOutcome(t *testing.T) {
	t.Parallel()

	p := Player{Name: "Kohli", BasePrice: 1000}
	if p.Sold() || p.Unsold() {
		t.Error("fresh lot has an outcome")
	}

	p.SoldTo = string(TeamCaptain1)
	p.SoldPrice = 2500
	if !p.Sold() || p.Unsold() {
		t.Error("sold lot misreported")
	}

	p.ClearOutcome()
	if p.SoldTo != "" || p.SoldPrice != 0 {
		t.Errorf("outcome not cleared: %+v", p)
	}

	p.SoldTo = SoldToUnsold
	if p.Sold() || !p.Unsold() {
		t.Error("unsold lot misreported")
	}
}
