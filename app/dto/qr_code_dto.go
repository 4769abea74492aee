package dto

// CreateQRCodeRequest is the body of POST /api/v1/qr
type CreateQRCodeRequest struct {
	URL         string `json:"url" validate:"required,max=2048"`
	Title       string `json:"title,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// UpdateQRCodeRequest is the body of PUT /api/v1/qr/:code
type UpdateQRCodeRequest struct {
	URL         string `json:"url" validate:"required,max=2048"`
	Title       string `json:"title,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ListQRCodesRequest carries pagination and an optional creation window for GET /api/v1/qr.
// Bounds are RFC3339 or YYYY-MM-DD (UTC); after is inclusive, before exclusive.
type ListQRCodesRequest struct {
	Page          int    `json:"page" query:"page"`
	PageSize      int    `json:"page_size" query:"page_size"`
	CreatedAfter  string `json:"created_after,omitempty" query:"created_after"`
	CreatedBefore string `json:"created_before,omitempty" query:"created_before"`
}

// QRCodeResponse is one QR code as returned by the API
type QRCodeResponse struct {
	ID          uint   `json:"id"`
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TotalScans  int64  `json:"total_scans"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateQRCodeResponse adds the rendered QR image to the created code
type CreateQRCodeResponse struct {
	QRCodeResponse
	QRCodeImage string `json:"qr_code_image"` // data:image/png;base64,...
}

// ListQRCodesResponse is a page of QR codes, newest first
type ListQRCodesResponse struct {
	Items      []QRCodeResponse `json:"items"`
	Pagination PaginationInfo   `json:"pagination"`
}

// PaginationInfo describes the current page
type PaginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// DeleteQRCodeResponse reports what a delete removed
type DeleteQRCodeResponse struct {
	ShortCode    string `json:"short_code"`
	DeletedScans int64  `json:"deleted_scans"`
}
