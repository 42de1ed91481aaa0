package tariff

import (
	"testing"
	"time"
)

func TestClassifyLeadTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		date      string
		clock     string
		threshold int
		wantMode  LeadTimeMode
		wantDelta *int
	}{
		{"pickup in 30 min is immediate", "2026-03-10", "12:30", 60, ModeImmediate, intp(30)},
		{"pickup in 2h is a reservation", "2026-03-10", "14:00", 60, ModeReservation, intp(120)},
		{"pickup exactly at threshold is a reservation", "2026-03-10", "13:00", 60, ModeReservation, intp(60)},
		{"past pickup is immediate", "2026-03-10", "11:00", 60, ModeImmediate, intp(-60)},
		{"french date format", "11/03/2026", "12:00", 60, ModeReservation, intp(1440)},
		{"HHhmm clock format", "2026-03-10", "14h30", 60, ModeReservation, intp(150)},
		{"missing time defaults to midnight", "2026-03-11", "", 60, ModeReservation, intp(720)},
		{"unparsable date fails open", "demain", "12:30", 60, ModeReservation, nil},
		{"unparsable time fails open", "2026-03-10", "midi", 60, ModeReservation, nil},
		{"empty date fails open", "", "12:30", 60, ModeReservation, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyLeadTime(tt.date, tt.clock, tt.threshold, now)
			if got.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", got.Mode, tt.wantMode)
			}
			switch {
			case tt.wantDelta == nil && got.DeltaMinutes != nil:
				t.Errorf("DeltaMinutes = %d, want nil", *got.DeltaMinutes)
			case tt.wantDelta != nil && got.DeltaMinutes == nil:
				t.Errorf("DeltaMinutes = nil, want %d", *tt.wantDelta)
			case tt.wantDelta != nil && *got.DeltaMinutes != *tt.wantDelta:
				t.Errorf("DeltaMinutes = %d, want %d", *got.DeltaMinutes, *tt.wantDelta)
			}
		})
	}
}

func intp(v int) *int { return &v }
