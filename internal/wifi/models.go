package wifi

import (
	"strings"
	"time"

	"github.com/EmpoweredVote/wifi-points/internal/geo"
	"gorm.io/gorm"
)

// AccessPoint is one public WiFi access point.
type AccessPoint struct {
	ID               string    `gorm:"primaryKey;size:100" json:"id"`
	Program          string    `gorm:"index;not null;size:100" json:"program"`
	InstallationDate time.Time `gorm:"not null" json:"installationDate"`
	Latitude         float64   `gorm:"not null" json:"latitude"`
	Longitude        float64   `gorm:"not null" json:"longitude"`
	Neighborhood     string    `gorm:"index;not null;size:100" json:"neighborhood"`
	District         string    `gorm:"index;not null;size:100" json:"district"`

	// PostGIS geography in WGS84 (SRID 4326); see Prepare.
	Location Location `gorm:"type:geography(Point,4326);not null" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (AccessPoint) TableName() string {
	return "wifi.access_points"
}

// Prepare validates the record and recomputes Location from Latitude and
// Longitude. Every write path goes through it.
func (ap *AccessPoint) Prepare(now time.Time) error {
	if strings.TrimSpace(ap.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(ap.Program) == "" {
		return &ValidationError{Field: "program", Reason: "must not be empty"}
	}
	if strings.TrimSpace(ap.Neighborhood) == "" {
		return &ValidationError{Field: "neighborhood", Reason: "must not be empty"}
	}
	if strings.TrimSpace(ap.District) == "" {
		return &ValidationError{Field: "district", Reason: "must not be empty"}
	}
	if ap.InstallationDate.IsZero() {
		return &ValidationError{Field: "installationDate", Reason: "is required"}
	}
	if ap.InstallationDate.After(now) {
		return &ValidationError{Field: "installationDate", Reason: "cannot be in the future"}
	}
	if err := geo.ValidateLatitude(ap.Latitude); err != nil {
		return &ValidationError{Field: "latitude", Reason: err.Error()}
	}
	if err := geo.ValidateLongitude(ap.Longitude); err != nil {
		return &ValidationError{Field: "longitude", Reason: err.Error()}
	}

	ap.Location = Location(geo.NewPoint(ap.Latitude, ap.Longitude))
	return nil
}

// BeforeSave keeps Location in sync on every gorm create/save.
func (ap *AccessPoint) BeforeSave(tx *gorm.DB) error {
	return ap.Prepare(time.Now())
}
