package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	UTM "github.com/im7mortal/UTM"
)

const (
	// utmEPSGPrefix is the NAD83 / UTM north EPSG family (269xx).
	utmEPSGPrefix      = "269"
	northernHemisphere = true
)

var (
	latitudeKeys  = []string{"latitude", "lat"}
	longitudeKeys = []string{"longitude", "lon", "long"}
)

// Location is the resolved position of a header.
type Location struct {
	Latitude  float64
	Longitude float64
	Easting   *float64
	Northing  *float64
	// EPSG of the UTM zone, empty when the header names no zone.
	EPSG string
	Zone int
}

func parseFloatField(h *Header, keys ...string) (*float64, error) {
	v := strings.TrimSpace(h.Value(keys...))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", keys[0], v, err)
	}
	return &f, nil
}

// utmZone reads the zone from utm_zone (digits only, "13N" is zone 13) or
// from the last two digits of an explicit epsg field.
func utmZone(h *Header) (zone int, epsg string, err error) {
	if raw := h.Value("utm_zone"); raw != "" {
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, raw)
		if digits == "" {
			return 0, "", fmt.Errorf("utm_zone %q has no zone number", raw)
		}
		zone, err = strconv.Atoi(digits)
		if err != nil {
			return 0, "", fmt.Errorf("utm_zone %q: %w", raw, err)
		}
		return zone, fmt.Sprintf("%s%02d", utmEPSGPrefix, zone), nil
	}
	if raw := strings.TrimSpace(h.Value("epsg")); raw != "" {
		if len(raw) < 2 {
			return 0, "", fmt.Errorf("epsg %q is too short to hold a zone", raw)
		}
		zone, err = strconv.Atoi(raw[len(raw)-2:])
		if err != nil {
			return 0, "", fmt.Errorf("epsg %q: %w", raw, err)
		}
		return zone, raw, nil
	}
	return 0, "", nil
}

// ResolveLocation prefers a direct latitude/longitude pair and otherwise
// projects easting/northing from the header's UTM zone, northern hemisphere
// assumed. A direct pair is never replaced by a projected one.
func ResolveLocation(h *Header) (Location, error) {
	var loc Location
	lat, err := parseFloatField(h, latitudeKeys...)
	if err != nil {
		return loc, err
	}
	lon, err := parseFloatField(h, longitudeKeys...)
	if err != nil {
		return loc, err
	}
	if loc.Easting, err = parseFloatField(h, "easting"); err != nil {
		return loc, err
	}
	if loc.Northing, err = parseFloatField(h, "northing"); err != nil {
		return loc, err
	}
	zone, epsg, zoneErr := utmZone(h)
	if zoneErr == nil {
		loc.Zone, loc.EPSG = zone, epsg
	}

	switch {
	case lat != nil && lon != nil:
		// A malformed zone only matters when it is needed for projection.
		loc.Latitude, loc.Longitude = *lat, *lon
	case loc.Easting != nil && loc.Northing != nil:
		if zoneErr != nil {
			return loc, zoneErr
		}
		if loc.Zone == 0 {
			return loc, fmt.Errorf("%w: easting/northing without a utm zone", ErrMissingLocation)
		}
		loc.Latitude, loc.Longitude, err = UTM.ToLatLon(*loc.Easting, *loc.Northing, loc.Zone, "", northernHemisphere)
		if err != nil {
			return loc, fmt.Errorf("project %v, %v in zone %d: %w", *loc.Easting, *loc.Northing, loc.Zone, err)
		}
	default:
		return loc, ErrMissingLocation
	}
	return loc, nil
}
