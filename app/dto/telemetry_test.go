package dto

import (
	"testing"
	"time"
)

func TestParseTelemetryMessage(t *testing.T) {
	receipt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("epoch millis timestamp", func(t *testing.T) {
		msg, err := ParseTelemetryMessage([]byte(`{"commandCode":"CMD1","paramCode":"TEMP","actualValue":"85","timestamp":1767225600000}`), receipt)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if want := time.UnixMilli(1767225600000); !msg.ReceivedAt.Equal(want) {
			t.Errorf("receivedAt = %v, want %v", msg.ReceivedAt, want)
		}
	})

	t.Run("iso timestamp", func(t *testing.T) {
		msg, err := ParseTelemetryMessage([]byte(`{"commandCode":"CMD1","paramCode":"TEMP","actualValue":"85","timestamp":"2026-01-01T00:00:00Z"}`), receipt)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if msg.ReceivedAt.Year() != 2026 || msg.ReceivedAt.Month() != time.January {
			t.Errorf("receivedAt = %v", msg.ReceivedAt)
		}
	})

	t.Run("missing timestamp defaults to receipt", func(t *testing.T) {
		msg, err := ParseTelemetryMessage([]byte(`{"commandCode":"CMD1","paramCode":"TEMP","actualValue":"85"}`), receipt)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !msg.ReceivedAt.Equal(receipt) {
			t.Errorf("receivedAt = %v, want receipt time", msg.ReceivedAt)
		}
	})

	t.Run("unparseable timestamp defaults to receipt", func(t *testing.T) {
		msg, err := ParseTelemetryMessage([]byte(`{"commandCode":"CMD1","paramCode":"TEMP","actualValue":"85","timestamp":"yesterday"}`), receipt)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !msg.ReceivedAt.Equal(receipt) {
			t.Errorf("receivedAt = %v, want receipt time", msg.ReceivedAt)
		}
	})

	t.Run("numeric actual value stringified", func(t *testing.T) {
		msg, err := ParseTelemetryMessage([]byte(`{"commandCode":"CMD1","paramCode":"TEMP","actualValue":85}`), receipt)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if msg.ActualValue != "85" {
			t.Errorf("actualValue = %q, want \"85\"", msg.ActualValue)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		for _, raw := range []string{
			`not json`,
			`{"paramCode":"TEMP","actualValue":"85"}`,
			`{"commandCode":"CMD1","actualValue":"85"}`,
			`{"commandCode":"CMD1","paramCode":"TEMP"}`,
		} {
			if _, err := ParseTelemetryMessage([]byte(raw), receipt); err == nil {
				t.Errorf("payload %q should be rejected", raw)
			}
		}
	})
}
