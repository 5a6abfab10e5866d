package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/wifi-points/internal/geo"
	"github.com/EmpoweredVote/wifi-points/internal/wifi"
	"golang.org/x/text/unicode/norm"
)

// Unknown replaces a missing neighborhood or district.
const Unknown = "Unknown"

// FallbackInstallationDate replaces an absent, unparseable or future date.
var FallbackInstallationDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Cells pandas-style exports use for missing values.
var missingMarkers = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"none": {},
	"na":   {},
	"n/a":  {},
}

func isMissing(s string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// cleanText trims, collapses inner whitespace and puts the text in NFC form so
// that "Cuauhtémoc" typed with a combining accent compares equal to the
// precomposed spelling.
func cleanText(s string) string {
	if isMissing(s) {
		return ""
	}
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// fieldDefault is one row of the default policy: when get returns "", set
// writes the default and the substitution is counted under Field.
type fieldDefault struct {
	Field   string
	Default string
	get     func(*wifi.AccessPoint) string
	set     func(*wifi.AccessPoint, string)
}

var defaultPolicy = []fieldDefault{
	{
		Field:   "neighborhood",
		Default: Unknown,
		get:     func(ap *wifi.AccessPoint) string { return ap.Neighborhood },
		set:     func(ap *wifi.AccessPoint, v string) { ap.Neighborhood = v },
	},
	{
		Field:   "district",
		Default: Unknown,
		get:     func(ap *wifi.AccessPoint) string { return ap.District },
		set:     func(ap *wifi.AccessPoint, v string) { ap.District = v },
	},
}

// Layouts tried in order for fecha_instalacion.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// resolveDate applies the fallback for absent, unparseable and future dates.
// The second result reports whether the fallback was used.
func resolveDate(s string, now time.Time) (time.Time, bool) {
	t, ok := parseDate(s)
	if !ok || t.After(now) {
		return FallbackInstallationDate, true
	}
	return t, false
}

var errMissingValue = errors.New("missing")

func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return 0, errMissingValue
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// Rejection is a source row that was skipped.
type Rejection struct {
	Line   int
	ID     string
	Reason string
}

// toRecord turns a cleaned source row into a record, applying the default
// policy and the date fallback. defaults is incremented per substituted field.
func toRecord(row SourceRow, now time.Time, defaults map[string]int) (wifi.AccessPoint, *Rejection) {
	reject := func(format string, args ...any) (wifi.AccessPoint, *Rejection) {
		return wifi.AccessPoint{}, &Rejection{Line: row.Line, ID: row.ID, Reason: fmt.Sprintf(format, args...)}
	}

	ap := wifi.AccessPoint{
		ID:           row.ID,
		Program:      cleanText(row.Program),
		Neighborhood: cleanText(row.Neighborhood),
		District:     cleanText(row.District),
	}
	if ap.ID == "" {
		return reject("id is empty")
	}
	if ap.Program == "" {
		return reject("programa is empty")
	}

	lat, err := parseCoordinate(row.Latitude)
	if err != nil {
		return reject("latitud: %v", err)
	}
	lon, err := parseCoordinate(row.Longitude)
	if err != nil {
		return reject("longitud: %v", err)
	}
	if err := geo.Validate(lat, lon); err != nil {
		return reject("%v (lat=%v, lon=%v)", err, lat, lon)
	}
	ap.Latitude, ap.Longitude = lat, lon

	for _, d := range defaultPolicy {
		if d.get(&ap) == "" {
			d.set(&ap, d.Default)
			defaults[d.Field]++
		}
	}

	var fellBack bool
	ap.InstallationDate, fellBack = resolveDate(row.InstallationDate, now)
	if fellBack {
		defaults["installation_date"]++
	}

	if err := ap.Prepare(now); err != nil {
		return reject("%v", err)
	}
	return ap, nil
}
