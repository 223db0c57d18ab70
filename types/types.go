// Package types holds the message and status types shared by the HTTP and
// WebSocket interfaces of the SMS gateway.
package types

// StoredMessage is an SMS message as stored by the gateway.
type StoredMessage struct {
	// MessageID is the gateway-assigned unique identifier.
	MessageID int64 `json:"message_id"`

	// PhoneNumber is the remote party, in international format.
	PhoneNumber string `json:"phone_number"`

	// MessageContent is the full text content.
	MessageContent string `json:"message_content"`

	// MessageReference is the modem-assigned reference number. Only present
	// for outgoing messages; useful for short-term delivery tracking only.
	MessageReference *uint8 `json:"message_reference,omitempty"`

	// IsOutgoing is true for sent messages, false for received ones.
	IsOutgoing bool `json:"is_outgoing"`

	// Status is the current message status ("sent", "delivered", "failed", ...).
	Status string `json:"status"`

	// CreatedAt is the unix timestamp the message was created.
	CreatedAt int64 `json:"created_at,omitempty"`

	// CompletedAt is the unix timestamp the message completed delivery, if it has.
	CompletedAt int64 `json:"completed_at,omitempty"`
}

// DeliveryReport is a partial delivery report as it arrives from the modem.
type DeliveryReport struct {
	// PhoneNumber is the recipient that the report came back from.
	PhoneNumber string `json:"phone_number"`

	// ReferenceID is the modem-assigned message reference. Prefer the
	// message ID resolved by the gateway for identification.
	ReferenceID uint8 `json:"reference_id"`

	// Status is the raw SMS TP-Status octet.
	Status uint8 `json:"status"`
}

// NumberSummary pairs a phone number with its optional friendly name, as
// returned by the latest-numbers listing.
type NumberSummary struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

// ModemState describes the modem lifecycle state.
type ModemState string

const (
	ModemStartup      ModemState = "Startup"
	ModemOnline       ModemState = "Online"
	ModemShuttingDown ModemState = "ShuttingDown"
	ModemOffline      ModemState = "Offline"
)

// GNSSPositionReport is an unsolicited position report from the modem's GNSS
// receiver. Satellite detail fields are optional.
type GNSSPositionReport struct {
	RunStatus bool   `json:"run_status"`
	FixStatus bool   `json:"fix_status"`
	UTCTime   string `json:"utc_time"`

	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	MSLAltitude *float64 `json:"msl_altitude,omitempty"`

	GroundSpeed  *float32 `json:"ground_speed,omitempty"`
	GroundCourse *float32 `json:"ground_course,omitempty"`
	FixMode      string   `json:"fix_mode,omitempty"`

	HDOP *float32 `json:"hdop,omitempty"`
	PDOP *float32 `json:"pdop,omitempty"`
	VDOP *float32 `json:"vdop,omitempty"`

	GPSInView     *uint8 `json:"gps_in_view,omitempty"`
	GNSSUsed      *uint8 `json:"gnss_used,omitempty"`
	GlonassInView *uint8 `json:"glonass_in_view,omitempty"`
}
