package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Request handling
const (
	// DefaultRequestTimeout bounds every API request context
	DefaultRequestTimeout = 10 * time.Second

	// RedirectRequestTimeout bounds the redirect hot path
	RedirectRequestTimeout = 5 * time.Second
)

// QR code rendering
const (
	// QRImageSize is the edge length of generated PNGs in pixels
	QRImageSize = 300

	// RedirectPathPrefix is prepended to short codes in public URLs
	RedirectPathPrefix = "/r/"
)
