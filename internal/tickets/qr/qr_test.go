package qr_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-eventgrid/internal/models"
	"ms-eventgrid/internal/tickets/qr"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := qr.NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}

func TestTokensEqual(t *testing.T) {
	assert.True(t, qr.TokensEqual("abc", "abc"))
	assert.False(t, qr.TokensEqual("abc", "abd"))
	assert.False(t, qr.TokensEqual("abc", "abcd"))
	assert.False(t, qr.TokensEqual("abc", ""))
}

func TestRender(t *testing.T) {
	ticket := models.Ticket{
		Identifier: "TKT-Gala-00001",
		QRCode:     "token",
		BuyerEmail: "buyer@example.com",
		BuyerName:  "Buyer",
		BuyerPhone: "+8801700000000",
	}
	gen := qr.NewQRGenerator(0)

	payload, err := gen.Payload(ticket)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, map[string]string{
		"ticketIdentifier": "TKT-Gala-00001",
		"qrCode":           "token",
		"buyerEmail":       "buyer@example.com",
		"buyerName":        "Buyer",
	}, decoded)

	img, err := gen.Render(ticket)
	require.NoError(t, err)
	decodedImg, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, qr.DefaultSize, decodedImg.Bounds().Dx())
}
