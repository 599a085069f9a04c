package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TelemetryMessage is the logical schema of an inbound telemetry sample
// as delivered by the message bus.
type TelemetryMessage struct {
	CommandCode   string
	ParamCode     string
	ParamName     string
	ActualValue   string
	ExpectedValue string
	ReceivedAt    time.Time
}

type rawTelemetryMessage struct {
	CommandCode   string `json:"commandCode"`
	ParamCode     string `json:"paramCode"`
	ParamName     string `json:"paramName"`
	ActualValue   any    `json:"actualValue"`
	ExpectedValue string `json:"expectedValue"`
	Timestamp     any    `json:"timestamp"`
}

// ParseTelemetryMessage decodes an inbound payload. The timestamp field
// is accepted as epoch milliseconds or an ISO-8601 string; when absent
// or unparseable the receipt time is used.
func ParseTelemetryMessage(raw []byte, receivedAt time.Time) (*TelemetryMessage, error) {
	var in rawTelemetryMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode telemetry message: %w", err)
	}
	if in.CommandCode == "" {
		return nil, fmt.Errorf("telemetry message missing commandCode")
	}
	if in.ParamCode == "" {
		return nil, fmt.Errorf("telemetry message missing paramCode")
	}
	if in.ActualValue == nil {
		return nil, fmt.Errorf("telemetry message missing actualValue")
	}

	msg := &TelemetryMessage{
		CommandCode:   in.CommandCode,
		ParamCode:     in.ParamCode,
		ParamName:     in.ParamName,
		ActualValue:   stringify(in.ActualValue),
		ExpectedValue: in.ExpectedValue,
		ReceivedAt:    receivedAt,
	}
	if ts, ok := parseTimestamp(in.Timestamp); ok {
		msg.ReceivedAt = ts
	}
	return msg, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%v", v)
}

func parseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case float64:
		return time.UnixMilli(int64(x)), true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
