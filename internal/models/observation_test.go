package models

import (
	"testing"
	"time"
)

func TestObservationType_Valid(t *testing.T) {
	t.Parallel()

	valid := []ObservationType{
		ObservationTypeText,
		ObservationTypePhoto,
		ObservationTypeVoice,
		ObservationTypeVideo,
		ObservationTypeWorksheet,
	}
	for _, typ := range valid {
		if !typ.Valid() {
			t.Errorf("expected %q to be valid", typ)
		}
	}

	for _, typ := range []ObservationType{"", "drawing", "TEXT"} {
		if typ.Valid() {
			t.Errorf("expected %q to be invalid", typ)
		}
	}
}

func TestObservationType_IsMedia(t *testing.T) {
	t.Parallel()

	if ObservationTypeText.IsMedia() {
		t.Error("text observations carry inline content, not media")
	}
	for _, typ := range []ObservationType{ObservationTypePhoto, ObservationTypeVoice, ObservationTypeVideo, ObservationTypeWorksheet} {
		if !typ.IsMedia() {
			t.Errorf("expected %q to be media", typ)
		}
	}
}

func TestObservation_AgeInMonths(t *testing.T) {
	t.Parallel()

	birth := func(y int, m time.Month, d int) *time.Time {
		bd := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &bd
	}

	tests := []struct {
		name       string
		birthDate  *time.Time
		observedAt time.Time
		want       int
	}{
		{
			name:       "exact years",
			birthDate:  birth(2021, time.March, 15),
			observedAt: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			want:       36,
		},
		{
			name:       "day before month boundary",
			birthDate:  birth(2021, time.March, 15),
			observedAt: time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
			want:       35,
		},
		{
			name:       "partial year",
			birthDate:  birth(2022, time.June, 1),
			observedAt: time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
			want:       19,
		},
		{
			name:       "unknown birth date",
			birthDate:  nil,
			observedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			want:       0,
		},
		{
			name:       "birth date after observation clamps to zero",
			birthDate:  birth(2025, time.January, 1),
			observedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obs := &Observation{ChildBirthDate: tt.birthDate, ObservedAt: tt.observedAt}
			if got := obs.AgeInMonths(); got != tt.want {
				t.Errorf("AgeInMonths() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProcessingRecord_StageHelpers(t *testing.T) {
	t.Parallel()

	record := &ProcessingRecord{}
	if record.ReaderDone() {
		t.Error("fresh record should not report extraction done")
	}
	if record.ObserverPending() {
		t.Error("fresh record should not be observer-pending")
	}

	record.ReaderOutput = &ReaderOutput{Confidence: 0.85}
	if !record.ReaderDone() {
		t.Error("record with extraction should report done")
	}
	if !record.ObserverPending() {
		t.Error("extracted record without patterns should be observer-pending")
	}

	record.ObserverOutput = &ObserverOutput{}
	if record.ObserverPending() {
		t.Error("fully processed record should not be observer-pending")
	}
}

func TestUsagePeriod_Duration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		period UsagePeriod
		want   time.Duration
	}{
		{UsagePeriodHour, time.Hour},
		{UsagePeriodDay, 24 * time.Hour},
		{UsagePeriodWeek, 7 * 24 * time.Hour},
		{UsagePeriodMonth, 30 * 24 * time.Hour},
		{UsagePeriod("bogus"), 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := tt.period.Duration(); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.period, got, tt.want)
		}
	}
}
