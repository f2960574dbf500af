// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	// ValueKindEmpty is the zero Value (an AnyValue with no case set).
	ValueKindEmpty ValueKind = iota

	// ValueKindString holds a string.
	ValueKindString

	// ValueKindBool holds a boolean.
	ValueKindBool

	// ValueKindInt holds a 64-bit integer.
	ValueKindInt

	// ValueKindDouble holds a float64.
	ValueKindDouble

	// ValueKindBytes holds raw bytes, kept as a lowercase hex string.
	ValueKindBytes

	// ValueKindArray holds an ordered list of Values.
	ValueKindArray

	// ValueKindKVList holds a nested string-keyed map of Values.
	ValueKindKVList
)

// Value is a tagged union for OTLP attribute values.
//
// OTLP attributes are open-ended heterogeneous data. Modeling them as a
// tagged union (rather than `any`) keeps decoding exhaustive: every AnyValue
// case has a defined mapping, and anything the decoder does not recognize
// degrades to its loggable string form instead of erroring.
type Value struct {
	Kind ValueKind

	Str    string
	Bool   bool
	Int    int64
	Double float64
	Arr    []Value
	KV     map[string]Value
}

// StringValue constructs a string Value.
func StringValue(s string) Value { return Value{Kind: ValueKindString, Str: s} }

// BoolValue constructs a boolean Value.
func BoolValue(b bool) Value { return Value{Kind: ValueKindBool, Bool: b} }

// IntValue constructs an integer Value.
func IntValue(i int64) Value { return Value{Kind: ValueKindInt, Int: i} }

// DoubleValue constructs a float Value.
func DoubleValue(d float64) Value { return Value{Kind: ValueKindDouble, Double: d} }

// AsString returns the string content for string and bytes Values, and the
// loggable form for everything else.
func (v Value) AsString() string {
	switch v.Kind {
	case ValueKindString, ValueKindBytes:
		return v.Str
	default:
		return v.String()
	}
}

// AsFloat returns the numeric content of an int or double Value, and 0 for
// every other kind.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case ValueKindInt:
		return float64(v.Int), true
	case ValueKindDouble:
		return v.Double, true
	default:
		return 0, false
	}
}

// String renders the value in a loggable form.
func (v Value) String() string {
	switch v.Kind {
	case ValueKindEmpty:
		return ""
	case ValueKindString, ValueKindBytes:
		return v.Str
	case ValueKindBool:
		return strconv.FormatBool(v.Bool)
	case ValueKindInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueKindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case ValueKindArray:
		parts := make([]string, len(v.Arr))
		for i, e := range v.Arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case ValueKindKVList:
		keys := make([]string, 0, len(v.KV))
		for k := range v.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + v.KV[k].String()
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("<value kind %d>", int(v.Kind))
	}
}

// MarshalJSON renders the value as its natural JSON shape, so records
// serialize the way the original flat mappings did.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindEmpty:
		return []byte("null"), nil
	case ValueKindString, ValueKindBytes:
		return json.Marshal(v.Str)
	case ValueKindBool:
		return json.Marshal(v.Bool)
	case ValueKindInt:
		return json.Marshal(v.Int)
	case ValueKindDouble:
		return json.Marshal(v.Double)
	case ValueKindArray:
		if v.Arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Arr)
	case ValueKindKVList:
		if v.KV == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.KV)
	default:
		return json.Marshal(v.String())
	}
}

// decodeAnyValue converts an OTLP AnyValue into a Value.
//
// Scalar, array, and kvlist cases are decoded recursively. A nil or
// unrecognized case never errors; it becomes an empty Value or the proto's
// string rendering, matching the best-effort decode policy.
func decodeAnyValue(av *commonpb.AnyValue) Value {
	if av == nil {
		return Value{}
	}
	switch val := av.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return StringValue(val.StringValue)
	case *commonpb.AnyValue_BoolValue:
		return BoolValue(val.BoolValue)
	case *commonpb.AnyValue_IntValue:
		return IntValue(val.IntValue)
	case *commonpb.AnyValue_DoubleValue:
		return DoubleValue(val.DoubleValue)
	case *commonpb.AnyValue_BytesValue:
		return Value{Kind: ValueKindBytes, Str: hex.EncodeToString(val.BytesValue)}
	case *commonpb.AnyValue_ArrayValue:
		vals := val.ArrayValue.GetValues()
		arr := make([]Value, 0, len(vals))
		for _, e := range vals {
			arr = append(arr, decodeAnyValue(e))
		}
		return Value{Kind: ValueKindArray, Arr: arr}
	case *commonpb.AnyValue_KvlistValue:
		kvs := val.KvlistValue.GetValues()
		kv := make(map[string]Value, len(kvs))
		for _, e := range kvs {
			kv[e.GetKey()] = decodeAnyValue(e.GetValue())
		}
		return Value{Kind: ValueKindKVList, KV: kv}
	case nil:
		return Value{}
	default:
		// Future AnyValue cases degrade to their loggable form.
		return StringValue(av.String())
	}
}

// decodeAttributes flattens an OTLP attribute list into a map.
// Returns nil for an empty list so zero attributes stay omitted in JSON.
func decodeAttributes(attrs []*commonpb.KeyValue) map[string]Value {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]Value, len(attrs))
	for _, a := range attrs {
		out[a.GetKey()] = decodeAnyValue(a.GetValue())
	}
	return out
}

// hexOrEmpty renders trace/span ID bytes as lowercase hex, empty when absent.
func hexOrEmpty(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}
