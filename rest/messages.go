package rest

import (
	"context"
	"net/http"

	"github.com/hybridz/smsgate/types"
)

// OutgoingMessage is an SMS message to send. The gateway splits content that
// exceeds a single SMS into multiple parts.
type OutgoingMessage struct {
	// To is the target phone number in international format.
	To string `json:"to"`

	// Content is the full message text. Unicode is supported.
	Content string `json:"content"`

	// ValidityPeriod is the relative validity period for the undelivered
	// message; zero leaves it to the gateway default (usually 24 hours).
	ValidityPeriod uint8 `json:"validity_period,omitempty"`

	// Flash sends the message as a flash SMS, shown as a popup on the
	// recipient's device instead of being stored.
	Flash bool `json:"flash,omitempty"`
}

// SimpleMessage builds an OutgoingMessage with gateway defaults.
func SimpleMessage(to, content string) OutgoingMessage {
	return OutgoingMessage{To: to, Content: content}
}

// SendReceipt is the gateway's acknowledgment of an accepted message.
type SendReceipt struct {
	// MessageID is the unique ID assigned to the stored message.
	MessageID int64 `json:"message_id"`

	// Reference is the modem-assigned reference number for the first part.
	Reference uint8 `json:"reference"`
}

// SendSMS submits a message for delivery. The request waits on the modem,
// so it uses the modem timeout.
func (c *Client) SendSMS(ctx context.Context, msg OutgoingMessage) (*SendReceipt, error) {
	var receipt SendReceipt
	if err := c.do(ctx, http.MethodPost, "/sms/send", nil, msg, &receipt, true); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// GetMessages returns one page of stored messages exchanged with the given
// phone number, oldest first unless opts.Reverse is set.
func (c *Client) GetMessages(ctx context.Context, phoneNumber string, opts PageOptions) ([]types.StoredMessage, error) {
	var msgs []types.StoredMessage
	q := opts.Query()
	q.Set("phone_number", phoneNumber)
	if err := c.do(ctx, http.MethodGet, "/db/sms", q, nil, &msgs, false); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetLatestNumbers returns one page of phone numbers with recent activity.
func (c *Client) GetLatestNumbers(ctx context.Context, opts PageOptions) ([]types.NumberSummary, error) {
	var nums []types.NumberSummary
	if err := c.do(ctx, http.MethodGet, "/db/latest-numbers", opts.Query(), nil, &nums, false); err != nil {
		return nil, err
	}
	return nums, nil
}

// GetDeliveryReports returns one page of delivery reports for a message.
func (c *Client) GetDeliveryReports(ctx context.Context, messageID int64, opts PageOptions) ([]types.DeliveryReport, error) {
	var reports []types.DeliveryReport
	q := opts.Query()
	q.Set("message_id", formatInt(messageID))
	if err := c.do(ctx, http.MethodGet, "/db/delivery-reports", q, nil, &reports, false); err != nil {
		return nil, err
	}
	return reports, nil
}

// friendlyNameRequest is the body of both friendly-name calls. A nil
// FriendlyName clears the stored name.
type friendlyNameRequest struct {
	PhoneNumber  string  `json:"phone_number"`
	FriendlyName *string `json:"friendly_name"`
}

// SetFriendlyName stores a display name for the phone number, shown by
// GetLatestNumbers. Reports whether the gateway changed anything.
func (c *Client) SetFriendlyName(ctx context.Context, phoneNumber, friendlyName string) (bool, error) {
	return c.setFriendlyName(ctx, phoneNumber, &friendlyName)
}

// ClearFriendlyName removes the stored display name for the phone number.
func (c *Client) ClearFriendlyName(ctx context.Context, phoneNumber string) (bool, error) {
	return c.setFriendlyName(ctx, phoneNumber, nil)
}

func (c *Client) setFriendlyName(ctx context.Context, phoneNumber string, friendlyName *string) (bool, error) {
	body := friendlyNameRequest{PhoneNumber: phoneNumber, FriendlyName: friendlyName}
	var changed bool
	if err := c.do(ctx, http.MethodPost, "/db/friendly-names/set", nil, body, &changed, false); err != nil {
		return false, err
	}
	return changed, nil
}

// GetFriendlyName returns the stored display name for the phone number, or
// the empty string when none is set.
func (c *Client) GetFriendlyName(ctx context.Context, phoneNumber string) (string, error) {
	body := struct {
		PhoneNumber string `json:"phone_number"`
	}{phoneNumber}
	var name *string
	if err := c.do(ctx, http.MethodPost, "/db/friendly-names/get", nil, body, &name, false); err != nil {
		return "", err
	}
	if name == nil {
		return "", nil
	}
	return *name, nil
}

// Messages returns a paginator over all stored messages for a phone number.
func (c *Client) Messages(phoneNumber string, opts PageOptions) *Paginator[types.StoredMessage] {
	if opts.Limit <= 0 {
		opts.Limit = c.pageSize
	}
	return NewPaginator(func(ctx context.Context, o PageOptions) ([]types.StoredMessage, error) {
		return c.GetMessages(ctx, phoneNumber, o)
	}, opts)
}

// LatestNumbers returns a paginator over all numbers with recent activity.
func (c *Client) LatestNumbers(opts PageOptions) *Paginator[types.NumberSummary] {
	if opts.Limit <= 0 {
		opts.Limit = c.pageSize
	}
	return NewPaginator(c.GetLatestNumbers, opts)
}

// DeliveryReports returns a paginator over all reports for a message.
func (c *Client) DeliveryReports(messageID int64, opts PageOptions) *Paginator[types.DeliveryReport] {
	if opts.Limit <= 0 {
		opts.Limit = c.pageSize
	}
	return NewPaginator(func(ctx context.Context, o PageOptions) ([]types.DeliveryReport, error) {
		return c.GetDeliveryReports(ctx, messageID, o)
	}, opts)
}
