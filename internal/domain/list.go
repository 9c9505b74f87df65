package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape tells which of the two accepted list encodings the server used.
type Shape int

const (
	ShapeArray Shape = iota + 1
	ShapeEnvelope
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	}
	return "unknown"
}

// ListPayload is a decoded voucher list response.
type ListPayload struct {
	Shape Shape
	Items []Voucher
	// Count is the server-reported total; only meaningful for envelopes.
	Count int
}

// Total is the envelope count when the server reported one, else the
// number of items received.
func (p ListPayload) Total() int {
	if p.Shape == ShapeEnvelope && p.Count > 0 {
		return p.Count
	}
	return len(p.Items)
}

// ServerPaginated reports whether the server returned only a subset.
func (p ListPayload) ServerPaginated() bool {
	return p.Shape == ShapeEnvelope && p.Count > len(p.Items)
}

type listEnvelope struct {
	Results *[]Voucher `json:"results"`
	Count   int        `json:"count"`
}

// DecodeList decodes either a raw JSON array of vouchers or a
// {results, count} envelope. Anything else is ErrProtocolShape.
func DecodeList(raw json.RawMessage) (ListPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ListPayload{}, fmt.Errorf("%w: empty body", ErrProtocolShape)
	}

	switch trimmed[0] {
	case '[':
		var items []Voucher
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return ListPayload{}, fmt.Errorf("%w: %v", ErrProtocolShape, err)
		}
		return ListPayload{Shape: ShapeArray, Items: items}, nil
	case '{':
		var env listEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return ListPayload{}, fmt.Errorf("%w: %v", ErrProtocolShape, err)
		}
		if env.Results == nil {
			return ListPayload{}, fmt.Errorf("%w: object without results", ErrProtocolShape)
		}
		return ListPayload{Shape: ShapeEnvelope, Items: *env.Results, Count: env.Count}, nil
	}
	return ListPayload{}, fmt.Errorf("%w: %.20s", ErrProtocolShape, trimmed)
}
