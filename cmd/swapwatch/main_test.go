package main

import (
	"testing"

	"github.com/shopspring/decimal"

	"swapwatch/internal/model"
)

func TestReplayRecordDoublesPrice(t *testing.T) {
	record := model.SwapRecord{TxHash: "0x1", Price: decimal.RequireFromString("1.25")}

	got := replayRecord(record)
	if got.Price.StringFixed(2) != "2.50" {
		t.Fatalf("price mismatch: %s", got.Price.StringFixed(2))
	}
	if got.TxHash != "0x1" {
		t.Fatalf("record fields changed: %+v", got)
	}
	if record.Price.StringFixed(2) != "1.25" {
		t.Fatalf("original record mutated")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
