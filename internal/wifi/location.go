package wifi

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"

	"github.com/EmpoweredVote/wifi-points/internal/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Location is the stored point geometry (lon-first, SRID 4326). It is never
// set directly; AccessPoint.Prepare derives it from Latitude/Longitude.
type Location orb.Point

func (l Location) Point() orb.Point { return orb.Point(l) }
func (l Location) Lat() float64     { return l[1] }
func (l Location) Lon() float64     { return l[0] }

// EWKT returns the extended WKT text PostGIS accepts for geography input,
// e.g. "SRID=4326;POINT(-99.1332 19.4326)".
func (l Location) EWKT() string {
	return fmt.Sprintf("SRID=%d;%s", geo.SRID, wkt.MarshalString(orb.Point(l)))
}

// EWKB returns the little-endian extended WKB encoding used by the SQLite store.
func (l Location) EWKB() ([]byte, error) {
	return ewkb.Marshal(orb.Point(l), geo.SRID)
}

// Value writes the location as EWKT so it binds as geography text input.
func (l Location) Value() (driver.Value, error) {
	return l.EWKT(), nil
}

// Scan reads raw EWKB (SQLite blobs) or hex-encoded EWKB (the text form
// PostGIS returns for geography columns).
func (l *Location) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("location: NULL geometry")
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("location: unsupported scan type %T", src)
	}

	if isHexText(raw) {
		decoded, err := hex.DecodeString(string(raw))
		if err != nil {
			return fmt.Errorf("location: decode hex: %w", err)
		}
		raw = decoded
	}

	g, srid, err := ewkb.Unmarshal(raw)
	if err != nil {
		return fmt.Errorf("location: unmarshal ewkb: %w", err)
	}
	if srid != 0 && srid != geo.SRID {
		return fmt.Errorf("location: unexpected SRID %d", srid)
	}
	p, ok := g.(orb.Point)
	if !ok {
		return fmt.Errorf("location: expected POINT, got %s", g.GeoJSONType())
	}

	*l = Location(p)
	return nil
}

// WKB always starts with a 0x00/0x01 byte-order marker, which is never a hex digit.
func isHexText(b []byte) bool {
	if len(b) == 0 || len(b)%2 != 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
