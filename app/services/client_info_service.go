package services

import (
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/amirphl/qrtrack/models"
	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"
)

// ClientDetails is what a user-agent string says about the scanning device
type ClientDetails struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	DeviceType     string
	DeviceVendor   string
	DeviceModel    string
}

// GeoLocation is the best-effort location of an IP address
type GeoLocation struct {
	Country   string
	Region    string
	City      string
	Timezone  string
	Latitude  *float64
	Longitude *float64
}

// ClientInfoService derives scan attributes from request headers.
// Lookups never fail: unknown input yields empty fields.
type ClientInfoService interface {
	ParseUserAgent(userAgent string) ClientDetails
	Locate(ip string) GeoLocation
	Close() error
}

// cityReader is the subset of *geoip2.Reader used here
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

type ClientInfoServiceImpl struct {
	geo cityReader
}

// NewClientInfoService opens the GeoLite2/GeoIP2 city database at geoDBPath.
// An empty path disables geolocation.
func NewClientInfoService(geoDBPath string) (ClientInfoService, error) {
	if geoDBPath == "" {
		return &ClientInfoServiceImpl{}, nil
	}
	reader, err := geoip2.Open(geoDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", geoDBPath, err)
	}
	return &ClientInfoServiceImpl{geo: reader}, nil
}

func (s *ClientInfoServiceImpl) ParseUserAgent(userAgent string) ClientDetails {
	details := ClientDetails{DeviceType: models.DeviceTypeDesktop}
	if strings.TrimSpace(userAgent) == "" {
		return details
	}

	ua := useragent.New(userAgent)
	details.Browser, details.BrowserVersion = ua.Browser()

	osInfo := ua.OSInfo()
	details.OS = osInfo.Name
	details.OSVersion = osInfo.Version

	platform := ua.Platform()
	switch {
	case ua.Bot():
		details.DeviceType = models.DeviceTypeBot
	case isTablet(userAgent, platform):
		details.DeviceType = models.DeviceTypeTablet
	case ua.Mobile():
		details.DeviceType = models.DeviceTypeMobile
	}

	switch platform {
	case "iPhone", "iPad", "iPod", "iPod touch":
		details.DeviceVendor = "Apple"
		details.DeviceModel = platform
	case "Macintosh":
		details.DeviceVendor = "Apple"
	}

	return details
}

func isTablet(userAgent, platform string) bool {
	if platform == "iPad" {
		return true
	}
	lower := strings.ToLower(userAgent)
	if strings.Contains(lower, "tablet") {
		return true
	}
	// Android tablets omit the "Mobile" token
	return strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")
}

func (s *ClientInfoServiceImpl) Locate(ip string) GeoLocation {
	var loc GeoLocation
	if s.geo == nil {
		return loc
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return loc
	}

	record, err := s.geo.City(parsed)
	if err != nil {
		log.Printf("geoip lookup failed for %s: %v", ip, err)
		return loc
	}

	loc.Country = record.Country.IsoCode
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}
	loc.City = record.City.Names["en"]
	loc.Timezone = record.Location.TimeZone
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		lat, lon := record.Location.Latitude, record.Location.Longitude
		loc.Latitude = &lat
		loc.Longitude = &lon
	}
	return loc
}

func (s *ClientInfoServiceImpl) Close() error {
	if s.geo == nil {
		return nil
	}
	return s.geo.Close()
}
