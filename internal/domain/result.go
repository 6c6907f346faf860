package domain

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeOrderResult reads a terminal result leniently. Terminals send ids,
// deals and lots as either numbers or strings, so every field is coerced.
// Only a payload that is not a JSON object is an error.
func DecodeOrderResult(raw []byte) (OrderResult, error) {
	raw = bytes.Trim(raw, "\x00 \t\r\n")
	if !gjson.ValidBytes(raw) {
		return OrderResult{}, &ValidationError{Field: "body", Kind: TypeMismatch}
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return OrderResult{}, &ValidationError{Field: "body", Kind: TypeMismatch}
	}

	r := OrderResult{
		OrderID:   strings.TrimSpace(doc.Get("id").String()),
		Status:    strings.ToUpper(strings.TrimSpace(doc.Get("status").String())),
		Event:     strings.ToUpper(strings.TrimSpace(doc.Get("event").String())),
		Direction: strings.ToUpper(strings.TrimSpace(doc.Get("direction").String())),
		Symbol:    doc.Get("symbol").String(),
		Deal:      doc.Get("deal").String(),
		Order:     doc.Get("order").String(),
		Reason:    doc.Get("reason").String(),
		Lot:       optionalNumber(doc.Get("lot")),
		Profit:    optionalNumber(doc.Get("profit")),
		Raw:       doc.Raw,
	}
	return r, nil
}

func optionalNumber(v gjson.Result) *float64 {
	switch v.Type {
	case gjson.Number:
		n := v.Float()
		return &n
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil
		}
		n := gjson.Parse(s)
		if n.Type != gjson.Number {
			return nil
		}
		f := n.Float()
		return &f
	}
	return nil
}
