package models

// DriftRecord compares the cached counter of one code with its real scan count.
// Difference is AuthoritativeCount - CachedCount: positive means the cache is behind.
type DriftRecord struct {
	QRCodeID           uint   `gorm:"column:qr_code_id" json:"qr_code_id"`
	ShortCode          string `gorm:"column:short_code" json:"short_code"`
	CachedCount        int64  `gorm:"column:cached_count" json:"cached_count"`
	AuthoritativeCount int64  `gorm:"column:authoritative_count" json:"authoritative_count"`
	Difference         int64  `gorm:"-" json:"difference"`
}

// ComputeDifference fills Difference from the two counts
func (r *DriftRecord) ComputeDifference() {
	r.Difference = r.AuthoritativeCount - r.CachedCount
}

// Drifted reports whether the cached counter disagrees with the scans table
func (r DriftRecord) Drifted() bool {
	return r.Difference != 0
}

// AbsDifference returns |Difference|
func (r DriftRecord) AbsDifference() int64 {
	if r.Difference < 0 {
		return -r.Difference
	}
	return r.Difference
}
