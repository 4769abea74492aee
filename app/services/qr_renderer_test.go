package services

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDataURL(t *testing.T) {
	renderer := NewQRRenderer(300)

	dataURL, err := renderer.RenderDataURL("https://qr.example.com/r/abc123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/png;base64,"))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestRenderDataURLEmptyContent(t *testing.T) {
	_, err := NewQRRenderer(300).RenderDataURL("")
	assert.Error(t, err)
}

func TestShortCodeGenerator(t *testing.T) {
	gen := NewShortCodeGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		require.NotEmpty(t, code)
		assert.LessOrEqual(t, len(code), 32)
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}
