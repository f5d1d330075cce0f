package models

import (
	"time"

	"github.com/zsefvlol/timezonemapper"
)

// Branch is a guarded site. Its timezone decides which calendar day a check-in belongs to.
type Branch struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Name      string    `gorm:"type:varchar(200)" bson:"name" json:"name"`
	GpsLat    *float64  `bson:"gps_lat,omitempty" json:"gps_lat"`
	GpsLong   *float64  `bson:"gps_long,omitempty" json:"gps_long"`
	Timezone  string    `gorm:"type:varchar(64)" bson:"timezone" json:"timezone"`
}

// ResolveTimezone fills in Timezone from the GPS coordinates when it was not given explicitly
func (b *Branch) ResolveTimezone() {
	if b.Timezone != "" || b.GpsLat == nil || b.GpsLong == nil {
		return
	}
	b.Timezone = timezonemapper.LatLngToTimezoneString(*b.GpsLat, *b.GpsLong)
}

// Location returns the branch timezone or fallback if it is unknown
func (b *Branch) Location(fallback *time.Location) *time.Location {
	if b == nil || b.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
