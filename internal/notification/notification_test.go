package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerNotifierWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	n := NewLoggerNotifier(logger)

	err := n.Send(context.Background(), Event{Kind: KindEtherDeposit, Account: "1", Amount: "1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), KindEtherDeposit) {
		t.Fatalf("expected kind in log output, got %s", buf.String())
	}

	var nilNotifier *LoggerNotifier
	if err := nilNotifier.Send(context.Background(), Event{}); err != nil {
		t.Fatalf("nil notifier must be a no-op, got %v", err)
	}
}

func TestEncodeMessageKeysByAccount(t *testing.T) {
	event := Event{
		Kind:       KindTokenWithdraw,
		Account:    "12",
		Asset:      "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Amount:     "0.4",
		Balance:    "0.6",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	msg, err := encodeMessage(event)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != "12" {
		t.Fatalf("expected key 12, got %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != KindTokenWithdraw {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Balance != "0.6" || decoded.Asset != event.Asset {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}
