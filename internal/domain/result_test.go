package domain

import (
	"errors"
	"testing"
)

func TestDecodeOrderResultCoercesFields(t *testing.T) {
	r, err := DecodeOrderResult([]byte(`{"status":"ok","id":1700000000000,"direction":"buy","symbol":"US30","lot":"1.5","deal":123,"order":"456"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != ResultStatusOK || r.OrderID != "1700000000000" || r.Direction != "BUY" {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.Deal != "123" || r.Order != "456" {
		t.Fatalf("expected deal/order as strings, got %q %q", r.Deal, r.Order)
	}
	if r.Lot == nil || *r.Lot != 1.5 {
		t.Fatalf("expected lot 1.5, got %v", r.Lot)
	}
	if r.Profit != nil {
		t.Fatalf("expected nil profit, got %v", *r.Profit)
	}
}

func TestDecodeOrderResultCloseEvent(t *testing.T) {
	r, err := DecodeOrderResult([]byte("{\"event\":\"close\",\"profit\":-12.5,\"reason\":\"SL\"}\x00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Event != ResultEventClose || r.Profit == nil || *r.Profit != -12.5 || r.Reason != "SL" {
		t.Fatalf("unexpected close result: %+v", r)
	}
	if r.Raw == "" {
		t.Fatal("expected raw payload to be kept")
	}
}

func TestDecodeOrderResultRejectsNonObjects(t *testing.T) {
	for _, body := range []string{"", "not json", "[1,2]", `"OK"`} {
		_, err := DecodeOrderResult([]byte(body))
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected invalid input, got %v", body, err)
		}
	}
}
