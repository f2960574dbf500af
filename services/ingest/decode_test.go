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
	"errors"
	"testing"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"
)

func TestDecodeTracesProtobuf(t *testing.T) {
	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{{
			ScopeSpans: []*tracepb.ScopeSpans{{
				Spans: []*tracepb.Span{{Name: "GET /"}},
			}},
		}},
	}
	raw, err := proto.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := DecodeTraces(ContentTypeProtobuf, raw)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ResourceSpans[0].ScopeSpans[0].Spans[0].Name != "GET /" {
		t.Error("span lost in decode")
	}
}

func TestDecodeTracesJSON(t *testing.T) {
	body := []byte(`{"resourceSpans":[{"scopeSpans":[{"spans":[{"name":"GET /"}]}]}]}`)

	decoded, err := DecodeTraces(ContentTypeJSON, body)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ResourceSpans[0].ScopeSpans[0].Spans[0].Name != "GET /" {
		t.Error("span lost in decode")
	}
}

func TestDecodeJSONDiscardsUnknownFields(t *testing.T) {
	body := []byte(`{"resourceSpans":[],"someFutureField":true}`)
	if _, err := DecodeTraces(ContentTypeJSON, body); err != nil {
		t.Errorf("unknown field rejected: %v", err)
	}
}

func TestDecodeContentTypeWithCharset(t *testing.T) {
	body := []byte(`{"resourceMetrics":[]}`)
	if _, err := DecodeMetrics("application/json; charset=utf-8", body); err != nil {
		t.Errorf("media type params rejected: %v", err)
	}
}

func TestDecodeBadPayload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{"garbage protobuf", ContentTypeProtobuf, []byte{0xff, 0xff, 0xff}},
		{"garbage json", ContentTypeJSON, []byte("{not json")},
		{"unsupported content type", "text/plain", []byte("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLogs(tt.contentType, tt.body)
			if err == nil {
				t.Fatal("expected error")
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error type = %T", err)
			}
			if decodeErr.Signal != SignalLog {
				t.Errorf("signal = %v", decodeErr.Signal)
			}
			if decodeErr.ContentType != tt.contentType {
				t.Errorf("content type = %q", decodeErr.ContentType)
			}
		})
	}
}
