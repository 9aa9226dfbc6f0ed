package qr

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/skip2/go-qrcode"

	"ms-eventgrid/internal/models"
)

const (
	tokenBytes  = 32
	DefaultSize = 256
)

// NewToken returns an unguessable url-safe token for Ticket.QRCode.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokensEqual compares two tokens in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type QRGenerator struct {
	size int
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRGenerator{size: size}
}

// Payload is the JSON text embedded in the image.
func (q *QRGenerator) Payload(ticket models.Ticket) ([]byte, error) {
	return json.Marshal(ticket.QRPayload())
}

// Render encodes the ticket payload as a PNG.
func (q *QRGenerator) Render(ticket models.Ticket) ([]byte, error) {
	data, err := q.Payload(ticket)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, q.size)
}
