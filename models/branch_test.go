package models

import (
	"testing"
	"time"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func TestBranch_ResolveTimezone(t *testing.T) {
	tests := []struct {
		name   string
		branch Branch
		want   string
	}{
		{
			name: "Jakarta from GPS",
			branch: Branch{
				GpsLat:  float64Ptr(-6.2088),
				GpsLong: float64Ptr(106.8456),
			},
			want: "Asia/Jakarta",
		},
		{
			name: "explicit timezone wins",
			branch: Branch{
				GpsLat:   float64Ptr(-6.2088),
				GpsLong:  float64Ptr(106.8456),
				Timezone: "Asia/Makassar",
			},
			want: "Asia/Makassar",
		},
		{
			name:   "no coordinates",
			branch: Branch{},
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.branch
			b.ResolveTimezone()
			if b.Timezone != tt.want {
				t.Errorf("Branch.ResolveTimezone() = %v, want %v", b.Timezone, tt.want)
			}
		})
	}
}

func TestBranch_Location(t *testing.T) {
	fallback := time.UTC
	tests := []struct {
		name   string
		branch *Branch
		want   string
	}{
		{"nil branch", nil, "UTC"},
		{"empty timezone", &Branch{}, "UTC"},
		{"unknown timezone", &Branch{Timezone: "Mars/Olympus"}, "UTC"},
		{"known timezone", &Branch{Timezone: "Asia/Jakarta"}, "Asia/Jakarta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.branch.Location(fallback).String(); got != tt.want {
				t.Errorf("Branch.Location() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttendanceRecord_CheckedIn(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		record AttendanceRecord
		want   bool
	}{
		{"absent", AttendanceRecord{Status: StatusAbsent}, false},
		{"on time", AttendanceRecord{Status: StatusOnTime, CheckinTime: &now}, true},
		{"late", AttendanceRecord{Status: StatusLate, CheckinTime: &now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.CheckedIn(); got != tt.want {
				t.Errorf("AttendanceRecord.CheckedIn() = %v, want %v", got, tt.want)
			}
		})
	}
}
