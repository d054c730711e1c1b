package pagination_test

import (
	"testing"
	"time"

	"github.com/enviopago/envio_backend/internal/utils/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2025, 6, 14, 10, 30, 0, 123456789, time.UTC)
	id := "7f9c3c1e-51a4-4f6e-9f33-0a5c2f9f0001"

	token := pagination.EncodeToken(createdAt, id)
	require.NotEmpty(t, token)

	gotTime, gotID, err := pagination.DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, id, gotID)
}

func TestDecodeToken_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "not base64", token: "%%%not-base64%%%"},
		{name: "missing separator", token: "bm8tc2VwYXJhdG9y"}, // "no-separator"
		{name: "bad timestamp", token: "bm90LWEtdGltZXxpZA=="}, // "not-a-time|id"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := pagination.DecodeToken(tt.token)
			assert.Error(t, err)
		})
	}
}
