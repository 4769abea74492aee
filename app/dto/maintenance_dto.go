package dto

// IntegrityWarning describes an inconsistency found while reading or repairing counters.
// It is informational and never returned as an error.
type IntegrityWarning struct {
	Kind      string `json:"kind"`
	ShortCode string `json:"short_code,omitempty"`
	Message   string `json:"message"`
}

// DriftRecordResponse compares one cached counter with its scans
type DriftRecordResponse struct {
	QRCodeID           uint   `json:"qr_code_id"`
	ShortCode          string `json:"short_code"`
	CachedCount        int64  `json:"cached_count"`
	AuthoritativeCount int64  `json:"authoritative_count"`
	Difference         int64  `json:"difference"`
}

// DriftTotals summarises a drift report
type DriftTotals struct {
	Codes              int64    `json:"codes"`
	CachedScans        int64    `json:"cached_scans"`
	AuthoritativeScans int64    `json:"authoritative_scans"`
	OrphanScans        int64    `json:"orphan_scans"`
	ZeroScanCodes      int64    `json:"zero_scan_codes"`
	DriftedCodes       int64    `json:"drifted_codes"`
	UnderCountedCodes  int64    `json:"under_counted_codes"`
	UnderCountedScans  int64    `json:"under_counted_scans"`
	OverCountedCodes   int64    `json:"over_counted_codes"`
	OverCountedScans   int64    `json:"over_counted_scans"`
	DiscrepancyPercent *float64 `json:"discrepancy_percent"` // nil when no scans are cached
}

// DriftReportResponse is the output of the drift detector
type DriftReportResponse struct {
	GeneratedAt string                `json:"generated_at"`
	Records     []DriftRecordResponse `json:"records"`
	Totals      DriftTotals           `json:"totals"`
	Warnings    []IntegrityWarning    `json:"warnings,omitempty"`
}

// ReconcileRequest is the body of POST /api/v1/admin/maintenance/reconcile
type ReconcileRequest struct {
	DryRun bool `json:"dry_run"`
}

// PlannedChange is one counter correction
type PlannedChange struct {
	QRCodeID  uint   `json:"qr_code_id"`
	ShortCode string `json:"short_code"`
	OldValue  int64  `json:"old_value"`
	NewValue  int64  `json:"new_value"`
	Delta     int64  `json:"delta"`
}

// ReconcileResponse reports a reconcile run
type ReconcileResponse struct {
	RunID      string             `json:"run_id"`
	Outcome    string             `json:"outcome"` // dry_run, no_changes, reconciled, residual_drift
	DryRun     bool               `json:"dry_run"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	Before     DriftTotals        `json:"before"`
	After      *DriftTotals       `json:"after,omitempty"`
	Changes    []PlannedChange    `json:"changes"`
	Applied    int                `json:"applied"`
	Warnings   []IntegrityWarning `json:"warnings,omitempty"`
}

// IssueAdminTokenResponse is printed by scanctl token
type IssueAdminTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
