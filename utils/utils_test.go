package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstHeaderValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "single", input: "203.0.113.7", want: "203.0.113.7"},
		{name: "forwarded chain", input: "203.0.113.7, 10.0.0.1, 10.0.0.2", want: "203.0.113.7"},
		{name: "accept language", input: "de-DE,de;q=0.9,en;q=0.8", want: "de-DE"},
		{name: "quality on first", input: "en;q=0.8, fr", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstHeaderValue(tt.input))
		})
	}
}

func TestStartOfWeek(t *testing.T) {
	// 2026-10-14 is a Wednesday
	wed := time.Date(2026, 10, 14, 17, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), StartOfWeek(wed))

	sun := time.Date(2026, 10, 11, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), StartOfWeek(sun))
}
