package services

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRRenderer turns a URL into a PNG QR code usable directly in an <img> tag
type QRRenderer interface {
	RenderDataURL(content string) (string, error)
}

type QRRendererImpl struct {
	size int
}

func NewQRRenderer(size int) QRRenderer {
	return &QRRendererImpl{size: size}
}

func (r *QRRendererImpl) RenderDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, r.size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
