// Package geo holds the coordinate rules shared by the stores and the loader:
// bounds validation, WGS84 ellipsoidal distance and the bounding boxes used to
// prefilter radius queries on stores without native geography support.
package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/geodesic"
)

// SRID of every stored location (WGS84 lon/lat).
const SRID = 4326

var (
	ErrLatitudeRange  = errors.New("latitude must be within [-90, 90]")
	ErrLongitudeRange = errors.New("longitude must be within [-180, 180]")
)

// ValidateLatitude rejects NaN, infinities and values outside [-90, 90].
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	return nil
}

// ValidateLongitude rejects NaN, infinities and values outside [-180, 180].
func ValidateLongitude(lon float64) error {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// Validate checks both coordinates, latitude first.
func Validate(lat, lon float64) error {
	if err := ValidateLatitude(lat); err != nil {
		return err
	}
	return ValidateLongitude(lon)
}

// NewPoint returns the lon-first point for a (lat, lon) pair.
func NewPoint(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Distance is the WGS84 geodesic distance in meters.
func Distance(a, b orb.Point) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat(), a.Lon(), b.Lat(), b.Lon(), &s12, nil, nil)
	return s12
}

// Destination walks meters from p along the given azimuth (degrees clockwise
// from north) on the WGS84 ellipsoid.
func Destination(p orb.Point, azimuth, meters float64) orb.Point {
	var lat, lon float64
	geodesic.WGS84.Direct(p.Lat(), p.Lon(), azimuth, meters, &lat, &lon, nil)
	return orb.Point{normalizeLon(lon), lat}
}

// Lower bounds for meters per degree on WGS84, shaved so the boxes below are
// always supersets of the true radius.
const (
	minMetersPerDegLat = 110_000.0
	minMetersPerDegLon = 111_000.0
)

// SearchBounds returns lon/lat boxes that together cover every point within
// radius meters of center. A box that crosses the antimeridian is split in two;
// a box that reaches a pole spans every longitude.
func SearchBounds(center orb.Point, radius float64) []orb.Bound {
	dLat := radius / minMetersPerDegLat * 1.01
	minLat := math.Max(-90, center.Lat()-dLat)
	maxLat := math.Min(90, center.Lat()+dLat)

	edge := math.Max(math.Abs(minLat), math.Abs(maxLat))
	if edge >= 89.999 {
		return []orb.Bound{{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}}
	}

	dLon := radius / (minMetersPerDegLon * math.Cos(edge*math.Pi/180)) * 1.01
	if dLon >= 180 {
		return []orb.Bound{{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}}
	}

	minLon := center.Lon() - dLon
	maxLon := center.Lon() + dLon
	switch {
	case minLon < -180:
		return []orb.Bound{
			{Min: orb.Point{minLon + 360, minLat}, Max: orb.Point{180, maxLat}},
			{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLon, maxLat}},
		}
	case maxLon > 180:
		return []orb.Bound{
			{Min: orb.Point{minLon, minLat}, Max: orb.Point{180, maxLat}},
			{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLon - 360, maxLat}},
		}
	}
	return []orb.Bound{{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}}
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
