package parser

import (
	"time"

	"github.com/paulmach/orb"
)

// ProfileMetaData is the canonical record of one file's header. It is built
// once per parse and shared read-only by every profile derived from the file.
type ProfileMetaData struct {
	SiteName     string    `json:"site_name"`
	SiteID       string    `json:"site_id,omitempty"`
	DateTime     time.Time `json:"date_time"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	UTMEPSG      string    `json:"utm_epsg,omitempty"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Flags        *string   `json:"flags"`
	Comments     *string   `json:"comments"`
	Observers    []string  `json:"observers,omitempty"`
	Elevation    *float64  `json:"elevation,omitempty"`
	Aspect       *float64  `json:"aspect,omitempty"`
	SlopeAngle   *float64  `json:"slope_angle,omitempty"`
	AirTemp      *float64  `json:"air_temp,omitempty"`
}

// Point is the WGS84 position, longitude first.
func (m *ProfileMetaData) Point() orb.Point {
	return orb.Point{m.Longitude, m.Latitude}
}
