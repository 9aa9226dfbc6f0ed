package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-eventgrid/internal/apperr"
)

func validBooking() BookingRequest {
	return BookingRequest{
		EventID:       "event-1",
		BuyerName:     " Ada Lovelace ",
		BuyerEmail:    " Ada@Example.COM ",
		BuyerPhone:    "+8801700000000",
		PaymentMethod: "bkash",
		PaymentID:     "TRX123",
	}
}

func TestBookingRequestNormalizeAndValidate(t *testing.T) {
	req := validBooking()
	req.Normalize()

	assert.Equal(t, "Ada Lovelace", req.BuyerName)
	assert.Equal(t, "ada@example.com", req.BuyerEmail)
	require.NoError(t, req.Validate())
}

func TestBookingRequestMissingFields(t *testing.T) {
	req := validBooking()
	req.BuyerPhone = ""
	req.PaymentID = "  "
	req.Normalize()

	err := req.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "buyerPhone, paymentId")
}

func TestBookingRequestRejectsMalformedEmail(t *testing.T) {
	for _, email := range []string{"not-an-email", "Ada <ada@example.com>", "@example.com"} {
		req := validBooking()
		req.BuyerEmail = email
		err := req.Validate()
		assert.ErrorIs(t, err, apperr.ErrValidation, email)
	}
}

func TestCheckInRequestValidate(t *testing.T) {
	assert.ErrorIs(t, CheckInRequest{QRCode: "q", OrganizationID: "o"}.Validate(), apperr.ErrValidation)
	assert.ErrorIs(t, CheckInRequest{TicketIdentifier: "TKT-x-00001", OrganizationID: "o"}.Validate(), apperr.ErrValidation)
	assert.NoError(t, CheckInRequest{TicketIdentifier: "TKT-x-00001", QRCode: "q", OrganizationID: "o"}.Validate())
}

func TestFormatIdentifier(t *testing.T) {
	assert.Equal(t, "TKT-Gala-00012", FormatIdentifier("Gala", 12))
	assert.Equal(t, "TKT-Gala-123456", FormatIdentifier("Gala", 123456))
}

func TestEventAvailabilityAndPrice(t *testing.T) {
	e := Event{MaxTickets: 3, TicketCount: 1}
	assert.Equal(t, 2, e.Available())
	assert.True(t, e.IsFree())

	e.TicketCount = 5
	assert.Equal(t, 0, e.Available())

	e.TicketPrice = decimal.NewNullDecimal(decimal.RequireFromString("150.00"))
	assert.False(t, e.IsFree())
}

func TestTicketQRPayload(t *testing.T) {
	tk := Ticket{Identifier: "TKT-Gala-00001", QRCode: "tok", BuyerEmail: "a@x.com", BuyerName: "A"}
	assert.Equal(t, QRPayload{TicketIdentifier: "TKT-Gala-00001", QRCode: "tok", BuyerEmail: "a@x.com", BuyerName: "A"}, tk.QRPayload())
	assert.True(t, PaymentCompleted.Valid())
	assert.False(t, PaymentStatus("REFUNDED").Valid())
}
