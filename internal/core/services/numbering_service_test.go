package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enviopago/envio_backend/internal/core/services"
)

func TestFormatReference(t *testing.T) {
	testCases := []struct {
		name     string
		prefix   string
		year     int
		sequence int
		expected string
	}{
		{"first order", "ORD", 2025, 1, "ORD-2025-0001"},
		{"first remittance", "REM", 2025, 1, "REM-2025-0001"},
		{"padded sequence", "REM", 2026, 42, "REM-2026-0042"},
		{"four digit sequence", "ORD", 2026, 9999, "ORD-2026-9999"},
		{"sequence overflows padding", "ORD", 2026, 10001, "ORD-2026-10001"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, services.FormatReference(tc.prefix, tc.year, tc.sequence))
		})
	}
}
