package rest

import (
	"context"
	"net/http"
	"strconv"
)

// DeviceInfo describes the gateway hardware.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Revision     string `json:"revision"`
	IMEI         string `json:"imei"`
}

// SignalStrength is the modem's current signal reading.
type SignalStrength struct {
	// RSSI in dBm; closer to zero is stronger.
	RSSI int `json:"rssi"`

	// BitErrorRate as reported by the modem, 99 when unknown.
	BitErrorRate int `json:"bit_error_rate"`
}

// NetworkStatus is the modem's registration state.
type NetworkStatus struct {
	Registered bool   `json:"registered"`
	Roaming    bool   `json:"roaming"`
	Technology string `json:"technology"`
}

// NetworkOperator identifies the serving carrier.
type NetworkOperator struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// BatteryLevel is the modem supply reading.
type BatteryLevel struct {
	// Percent of charge, 0-100.
	Percent int `json:"percent"`

	// Millivolts of the supply voltage.
	Millivolts int `json:"millivolts"`
}

// GetDeviceInfo returns the gateway device description. The modem is asked
// for anything not cached, so the request uses the modem timeout.
func (c *Client) GetDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.do(ctx, http.MethodGet, "/sms/device-info", nil, nil, &info, true); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSignalStrength queries the modem for its current signal reading.
func (c *Client) GetSignalStrength(ctx context.Context) (*SignalStrength, error) {
	var sig SignalStrength
	if err := c.doModem(ctx, "/sms/signal-strength", "SignalStrength", &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// GetNetworkStatus queries the modem for its registration state.
func (c *Client) GetNetworkStatus(ctx context.Context) (*NetworkStatus, error) {
	var st NetworkStatus
	if err := c.doModem(ctx, "/sms/modem-status", "NetworkStatus", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetNetworkOperator queries the modem for the serving carrier network, e.g.
// vodafone. Often shared by several service providers in a region.
func (c *Client) GetNetworkOperator(ctx context.Context) (*NetworkOperator, error) {
	var op NetworkOperator
	if err := c.doModem(ctx, "/sms/network-operator", "NetworkOperator", &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// GetServiceProvider queries the SIM for the contract brand, which may be a
// reseller on top of the network operator.
func (c *Client) GetServiceProvider(ctx context.Context) (string, error) {
	var provider string
	if err := c.doModem(ctx, "/sms/service-provider", "ServiceProvider", &provider); err != nil {
		return "", err
	}
	return provider, nil
}

// GetBatteryLevel queries the modem for its supply reading.
func (c *Client) GetBatteryLevel(ctx context.Context) (*BatteryLevel, error) {
	var bat BatteryLevel
	if err := c.doModem(ctx, "/sms/battery-level", "BatteryLevel", &bat); err != nil {
		return nil, err
	}
	return &bat, nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
