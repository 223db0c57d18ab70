package ws

import (
	"encoding/json"

	"github.com/hybridz/smsgate/types"
)

// EventType tags an event pushed over the channel.
type EventType string

const (
	// EventIncoming is a newly received SMS message.
	EventIncoming EventType = "incoming"

	// EventOutgoing is a message being sent by the API or another client.
	EventOutgoing EventType = "outgoing"

	// EventDelivery is a delivery report update.
	EventDelivery EventType = "delivery"

	// EventModemStatus is a modem lifecycle transition.
	EventModemStatus EventType = "modem_status_update"

	// EventGNSSPosition is an unsolicited GNSS position report.
	EventGNSSPosition EventType = "gnss_position_report"

	// EventConnectionUpdate is generated locally when the event channel
	// connects or disconnects. It never comes from the gateway.
	EventConnectionUpdate EventType = "connection_update"
)

// Event is the tagged envelope received from the event channel. Data holds
// the raw variant payload; use the typed accessors to decode the variants
// this client understands. Unknown types are passed through untouched.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DeliveryUpdate pairs a resolved message ID with the received report.
type DeliveryUpdate struct {
	// MessageID is the message this report applies to, resolved by the
	// gateway from the modem reference and sender.
	MessageID int64 `json:"message_id"`

	Report types.DeliveryReport `json:"report"`
}

// ModemStatusUpdate is a modem state transition.
type ModemStatusUpdate struct {
	Previous types.ModemState `json:"previous"`
	Current  types.ModemState `json:"current"`
}

// ConnectionUpdate reports a local event channel status change.
type ConnectionUpdate struct {
	// Connected is true right after a successful connect, false on loss.
	Connected bool `json:"connected"`

	// Reconnect reports whether the client will attempt to reconnect.
	Reconnect bool `json:"reconnect"`
}

// Message decodes an incoming or outgoing message event.
func (e Event) Message() (*types.StoredMessage, error) {
	var msg types.StoredMessage
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Delivery decodes a delivery report event.
func (e Event) Delivery() (*DeliveryUpdate, error) {
	var du DeliveryUpdate
	if err := json.Unmarshal(e.Data, &du); err != nil {
		return nil, err
	}
	return &du, nil
}

// ModemStatus decodes a modem status update event.
func (e Event) ModemStatus() (*ModemStatusUpdate, error) {
	var mu ModemStatusUpdate
	if err := json.Unmarshal(e.Data, &mu); err != nil {
		return nil, err
	}
	return &mu, nil
}

// GNSSPosition decodes a GNSS position report event.
func (e Event) GNSSPosition() (*types.GNSSPositionReport, error) {
	var pr types.GNSSPositionReport
	if err := json.Unmarshal(e.Data, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// Connection decodes a local connection update event.
func (e Event) Connection() (*ConnectionUpdate, error) {
	var cu ConnectionUpdate
	if err := json.Unmarshal(e.Data, &cu); err != nil {
		return nil, err
	}
	return &cu, nil
}

func connectionEvent(connected, reconnect bool) Event {
	data, _ := json.Marshal(ConnectionUpdate{Connected: connected, Reconnect: reconnect})
	return Event{Type: EventConnectionUpdate, Data: data}
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
