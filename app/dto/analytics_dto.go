package dto

// StatsRequest carries query options for GET /api/v1/qr/:code/stats
type StatsRequest struct {
	ScanLimit int `query:"scan_limit"`
}

// ScanResponse is one recorded scan
type ScanResponse struct {
	ID             uint     `json:"id"`
	ScanTime       string   `json:"scan_time"`
	IPAddress      string   `json:"ip_address"`
	UserAgent      string   `json:"user_agent"`
	Browser        string   `json:"browser"`
	BrowserVersion string   `json:"browser_version"`
	OS             string   `json:"os"`
	OSVersion      string   `json:"os_version"`
	DeviceType     string   `json:"device_type"`
	DeviceVendor   string   `json:"device_vendor"`
	DeviceModel    string   `json:"device_model"`
	Country        string   `json:"country"`
	Region         string   `json:"region"`
	City           string   `json:"city"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Timezone       string   `json:"timezone"`
	Referrer       string   `json:"referrer"`
	Language       string   `json:"language"`
}

// CountBucket is one labelled count
type CountBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// AnalyticsSummary aggregates the scans of one code
type AnalyticsSummary struct {
	TotalScans    int64         `json:"total_scans"`
	RecordedScans int64         `json:"recorded_scans"`
	Browsers      []CountBucket `json:"browsers"`
	OS            []CountBucket `json:"os"`
	Devices       []CountBucket `json:"devices"`
	Countries     []CountBucket `json:"countries"`
	Cities        []CountBucket `json:"cities"`
	Hourly        []int64       `json:"hourly"` // 24 entries, UTC hour of day
	Daily         []CountBucket `json:"daily"`  // YYYY-MM-DD ascending
}

// StatsResponse is the full stats payload of one code
type StatsResponse struct {
	QRCode    QRCodeResponse     `json:"qr_code"`
	Analytics AnalyticsSummary   `json:"analytics"`
	Scans     []ScanResponse     `json:"scans"`
	Warnings  []IntegrityWarning `json:"warnings,omitempty"`
}

// TimelineRequest carries query options for GET /api/v1/qr/:code/timeline
type TimelineRequest struct {
	Period string `query:"period"`
	Limit  int    `query:"limit"`
}

// TimelinePoint is one time bucket
type TimelinePoint struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// TimelineResponse holds the last Limit buckets in ascending order
type TimelineResponse struct {
	ShortCode   string          `json:"short_code"`
	Period      string          `json:"period"`
	Timeline    []TimelinePoint `json:"timeline"`
	TotalPoints int             `json:"total_points"`
}

// ExportScansRequest limits an export to scans in [from, to). Both bounds are optional.
type ExportScansRequest struct {
	From string `json:"from,omitempty" query:"from"`
	To   string `json:"to,omitempty" query:"to"`
}
