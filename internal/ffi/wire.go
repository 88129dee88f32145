// Package ffi implements the byte-level contract of the libfeaturekit shared library: protobuf
// wire messages for contexts and decisions, and the JSON response envelope.
package ffi

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/featurekit/featurekit-go/flagengine"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/utils"
)

// Field numbers, see proto/featurekit.proto.
const (
	contextUserID        protowire.Number = 1
	contextSessionID     protowire.Number = 2
	contextEnvironment   protowire.Number = 3
	contextAppName       protowire.Number = 4
	contextCurrentTime   protowire.Number = 5
	contextRemoteAddress protowire.Number = 6
	contextProperties    protowire.Number = 7

	mapKey   protowire.Number = 1
	mapValue protowire.Number = 2

	payloadType  protowire.Number = 1
	payloadValue protowire.Number = 2

	variantName           protowire.Number = 1
	variantEnabled        protowire.Number = 2
	variantFeatureEnabled protowire.Number = 3
	variantPayload        protowire.Number = 4

	toggleName           protowire.Number = 1
	toggleEnabled        protowire.Number = 2
	toggleImpressionData protowire.Number = 3
	toggleVariant        protowire.Number = 4
	toggleFound          protowire.Number = 5

	listToggles protowire.Number = 1
)

var errWireType = errors.New("unexpected wire type")

// VariantPayload mirrors the VariantPayload message.
type VariantPayload struct {
	Type  string
	Value string
}

// EvaluatedVariant mirrors the EvaluatedVariant message.
type EvaluatedVariant struct {
	Name           string
	Enabled        bool
	FeatureEnabled bool
	Payload        *VariantPayload
}

// EvaluatedToggle mirrors the EvaluatedToggle message.
type EvaluatedToggle struct {
	Name           string
	Enabled        bool
	ImpressionData bool
	Variant        EvaluatedVariant
	Found          bool
}

// FromResult converts an engine decision into its wire form.
func FromResult(res flagengine.EvaluationResult, found bool) EvaluatedToggle {
	t := EvaluatedToggle{
		Name:           res.Name,
		Enabled:        res.Enabled,
		ImpressionData: res.ImpressionData,
		Found:          found,
		Variant: EvaluatedVariant{
			Name:           res.Variant.Name,
			Enabled:        res.Variant.Enabled,
			FeatureEnabled: res.Variant.FeatureEnabled,
		},
	}
	if p := res.Variant.Payload; p != nil {
		t.Variant.Payload = &VariantPayload{Type: p.Type, Value: p.Value}
	}
	return t
}

// DecodeContext parses a Context message. Unknown fields are skipped; a current_time that cannot be
// parsed is ignored so the engine clock applies.
func DecodeContext(b []byte) (*contexts.Context, error) {
	ctx := &contexts.Context{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == contextProperties && typ == protowire.BytesType {
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			key, value, err := decodeMapEntry(entry)
			if err != nil {
				return 0, fmt.Errorf("properties: %w", err)
			}
			if ctx.Properties == nil {
				ctx.Properties = make(map[string]string)
			}
			ctx.Properties[key] = value
			return n, nil
		}

		var field *string
		switch num {
		case contextUserID:
			field = &ctx.UserID
		case contextSessionID:
			field = &ctx.SessionID
		case contextEnvironment:
			field = &ctx.Environment
		case contextAppName:
			field = &ctx.AppName
		case contextRemoteAddress:
			field = &ctx.RemoteAddress
		case contextCurrentTime:
			if typ != protowire.BytesType {
				return 0, fmt.Errorf("field %d: %w", num, errWireType)
			}
			s, n := protowire.ConsumeString(b)
			if n >= 0 && s != "" {
				if ts, err := utils.ParseLenientTime(s); err == nil {
					ctx.CurrentTime = ts
				}
			}
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		if typ != protowire.BytesType {
			return 0, fmt.Errorf("field %d: %w", num, errWireType)
		}
		s, n := protowire.ConsumeString(b)
		*field = s
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return ctx, nil
}

// EncodeContext serializes ctx as a Context message.
func EncodeContext(ctx *contexts.Context) []byte {
	var b []byte
	b = appendString(b, contextUserID, ctx.UserID)
	b = appendString(b, contextSessionID, ctx.SessionID)
	b = appendString(b, contextEnvironment, ctx.Environment)
	b = appendString(b, contextAppName, ctx.AppName)
	if !ctx.CurrentTime.IsZero() {
		b = appendString(b, contextCurrentTime, ctx.CurrentTime.UTC().Format(time.RFC3339Nano))
	}
	b = appendString(b, contextRemoteAddress, ctx.RemoteAddress)
	for k, v := range ctx.Properties {
		var entry []byte
		entry = appendString(entry, mapKey, k)
		entry = appendString(entry, mapValue, v)
		b = protowire.AppendTag(b, contextProperties, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// Marshal serializes t as an EvaluatedToggle message.
func (t *EvaluatedToggle) Marshal() []byte {
	return t.append(nil)
}

func (t *EvaluatedToggle) append(b []byte) []byte {
	b = appendString(b, toggleName, t.Name)
	b = appendBool(b, toggleEnabled, t.Enabled)
	b = appendBool(b, toggleImpressionData, t.ImpressionData)
	b = protowire.AppendTag(b, toggleVariant, protowire.BytesType)
	b = protowire.AppendBytes(b, t.Variant.append(nil))
	b = appendBool(b, toggleFound, t.Found)
	return b
}

func (v *EvaluatedVariant) append(b []byte) []byte {
	b = appendString(b, variantName, v.Name)
	b = appendBool(b, variantEnabled, v.Enabled)
	b = appendBool(b, variantFeatureEnabled, v.FeatureEnabled)
	if v.Payload != nil {
		var p []byte
		p = appendString(p, payloadType, v.Payload.Type)
		p = appendString(p, payloadValue, v.Payload.Value)
		b = protowire.AppendTag(b, variantPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	}
	return b
}

// MarshalList serializes ts as an EvaluatedToggleList message.
func MarshalList(ts []EvaluatedToggle) []byte {
	var b []byte
	for i := range ts {
		b = protowire.AppendTag(b, listToggles, protowire.BytesType)
		b = protowire.AppendBytes(b, ts[i].append(nil))
	}
	return b
}

// UnmarshalToggle parses an EvaluatedToggle message.
func UnmarshalToggle(b []byte) (EvaluatedToggle, error) {
	var t EvaluatedToggle
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == toggleName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			t.Name = s
			return n, nil
		case num == toggleEnabled && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			t.Enabled = protowire.DecodeBool(v)
			return n, nil
		case num == toggleImpressionData && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			t.ImpressionData = protowire.DecodeBool(v)
			return n, nil
		case num == toggleFound && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			t.Found = protowire.DecodeBool(v)
			return n, nil
		case num == toggleVariant && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			v, err := unmarshalVariant(raw)
			if err != nil {
				return 0, err
			}
			t.Variant = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return t, err
}

// UnmarshalList parses an EvaluatedToggleList message.
func UnmarshalList(b []byte) ([]EvaluatedToggle, error) {
	var ts []EvaluatedToggle
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != listToggles || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		t, err := UnmarshalToggle(raw)
		if err != nil {
			return 0, err
		}
		ts = append(ts, t)
		return n, nil
	})
	return ts, err
}

func unmarshalVariant(b []byte) (EvaluatedVariant, error) {
	var v EvaluatedVariant
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == variantName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			v.Name = s
			return n, nil
		case num == variantEnabled && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			v.Enabled = protowire.DecodeBool(x)
			return n, nil
		case num == variantFeatureEnabled && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			v.FeatureEnabled = protowire.DecodeBool(x)
			return n, nil
		case num == variantPayload && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			p := &VariantPayload{}
			err := consumeFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if typ == protowire.BytesType && (num == payloadType || num == payloadValue) {
					s, n := protowire.ConsumeString(b)
					if num == payloadType {
						p.Type = s
					} else {
						p.Value = s
					}
					return n, nil
				}
				return protowire.ConsumeFieldValue(num, typ, b), nil
			})
			if err != nil {
				return 0, err
			}
			v.Payload = p
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return v, err
}

func decodeMapEntry(b []byte) (key, value string, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.BytesType && (num == mapKey || num == mapValue) {
			s, n := protowire.ConsumeString(b)
			if num == mapKey {
				key = s
			} else {
				value = s
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return key, value, err
}

// consumeFields walks the fields of a message. fn consumes one field value and returns its length,
// negative for a protowire parse error.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}
