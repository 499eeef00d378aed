package rpc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Wire layout of booking.v1 messages:
//
//	CheckAvailabilityRequest  { string date = 1; string professional_name = 2; }
//	CheckAvailabilityResponse { repeated Event events = 1; }
//	Event                     { string id = 1; string title = 2; string user_id = 3;
//	                            string professional_name = 4; google.protobuf.Timestamp start = 5;
//	                            string date = 6; string hour = 7; }
//	CreateEventRequest        { string professional_name = 1; string date = 2; string time = 3; string title = 4; }
//	CreateEventResponse       { string id = 1; }
//	CancelEventRequest        { string id = 1; }
//	CancelEventResponse       { bool notification_failed = 1; }

type message interface {
	marshal() []byte
	unmarshal(b []byte) error
}

type CheckAvailabilityRequest struct {
	Date             string
	ProfessionalName string
}

type CheckAvailabilityResponse struct {
	Events []*Event
}

type Event struct {
	Id               string
	Title            string
	UserId           string
	ProfessionalName string
	Start            *timestamppb.Timestamp
	Date             string
	Hour             string
}

type CreateEventRequest struct {
	ProfessionalName string
	Date             string
	Time             string
	Title            string
}

type CreateEventResponse struct {
	Id string
}

type CancelEventRequest struct {
	Id string
}

type CancelEventResponse struct {
	NotificationFailed bool
}

// walk calls fn for every field in b. fn returns the bytes it consumed, or
// 0 to have the field skipped.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

// str reads a string field into dst when the wire type matches.
func str(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func appendString(out []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendString(out, v)
}

func appendTimestamp(out []byte, num protowire.Number, ts *timestamppb.Timestamp) []byte {
	if ts == nil {
		return out
	}
	var inner []byte
	if ts.Seconds != 0 {
		inner = protowire.AppendTag(inner, 1, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(ts.Seconds))
	}
	if ts.Nanos != 0 {
		inner = protowire.AppendTag(inner, 2, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(ts.Nanos))
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, inner)
}

func parseTimestamp(b []byte) (*timestamppb.Timestamp, error) {
	ts := &timestamppb.Timestamp{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.VarintType {
			return 0
		}
		v, n := protowire.ConsumeVarint(b)
		switch num {
		case 1:
			ts.Seconds = int64(v)
		case 2:
			ts.Nanos = int32(v)
		default:
			return 0
		}
		return n
	})
	return ts, err
}

func (m *CheckAvailabilityRequest) marshal() []byte {
	var out []byte
	out = appendString(out, 1, m.Date)
	out = appendString(out, 2, m.ProfessionalName)
	return out
}

func (m *CheckAvailabilityRequest) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return str(typ, b, &m.Date)
		case 2:
			return str(typ, b, &m.ProfessionalName)
		}
		return 0
	})
}

func (m *CheckAvailabilityResponse) marshal() []byte {
	var out []byte
	for _, e := range m.Events {
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, e.marshal())
	}
	return out
}

func (m *CheckAvailabilityResponse) unmarshal(b []byte) error {
	var inner error
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != 1 || typ != protowire.BytesType {
			return 0
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		e := &Event{}
		if err := e.unmarshal(v); err != nil {
			inner = err
		}
		m.Events = append(m.Events, e)
		return n
	})
	if err != nil {
		return err
	}
	return inner
}

func (m *Event) marshal() []byte {
	var out []byte
	out = appendString(out, 1, m.Id)
	out = appendString(out, 2, m.Title)
	out = appendString(out, 3, m.UserId)
	out = appendString(out, 4, m.ProfessionalName)
	out = appendTimestamp(out, 5, m.Start)
	out = appendString(out, 6, m.Date)
	out = appendString(out, 7, m.Hour)
	return out
}

func (m *Event) unmarshal(b []byte) error {
	var inner error
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return str(typ, b, &m.Id)
		case 2:
			return str(typ, b, &m.Title)
		case 3:
			return str(typ, b, &m.UserId)
		case 4:
			return str(typ, b, &m.ProfessionalName)
		case 5:
			if typ != protowire.BytesType {
				return 0
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			m.Start, inner = parseTimestamp(v)
			return n
		case 6:
			return str(typ, b, &m.Date)
		case 7:
			return str(typ, b, &m.Hour)
		}
		return 0
	})
	if err != nil {
		return err
	}
	return inner
}

func (m *CreateEventRequest) marshal() []byte {
	var out []byte
	out = appendString(out, 1, m.ProfessionalName)
	out = appendString(out, 2, m.Date)
	out = appendString(out, 3, m.Time)
	out = appendString(out, 4, m.Title)
	return out
}

func (m *CreateEventRequest) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return str(typ, b, &m.ProfessionalName)
		case 2:
			return str(typ, b, &m.Date)
		case 3:
			return str(typ, b, &m.Time)
		case 4:
			return str(typ, b, &m.Title)
		}
		return 0
	})
}

func (m *CreateEventResponse) marshal() []byte { return appendString(nil, 1, m.Id) }

func (m *CreateEventResponse) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return str(typ, b, &m.Id)
		}
		return 0
	})
}

func (m *CancelEventRequest) marshal() []byte { return appendString(nil, 1, m.Id) }

func (m *CancelEventRequest) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return str(typ, b, &m.Id)
		}
		return 0
	})
}

func (m *CancelEventResponse) marshal() []byte {
	if !m.NotificationFailed {
		return nil
	}
	out := protowire.AppendTag(nil, 1, protowire.VarintType)
	return protowire.AppendVarint(out, protowire.EncodeBool(true))
}

func (m *CancelEventResponse) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != 1 || typ != protowire.VarintType {
			return 0
		}
		v, n := protowire.ConsumeVarint(b)
		m.NotificationFailed = protowire.DecodeBool(v)
		return n
	})
}

// codec encodes the message types above on the wire in protobuf format.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("rpc codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("rpc codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}

func (codec) Name() string { return "proto" }
