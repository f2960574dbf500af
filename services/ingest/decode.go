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
	"fmt"
	"mime"
	"strings"

	collogpb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// OTLP/HTTP content types.
const (
	ContentTypeProtobuf = "application/x-protobuf"
	ContentTypeJSON     = "application/json"
)

// DecodeError reports malformed wire bytes at the transport boundary.
//
// It is the only error the ingest package produces: once bytes decode into a
// valid export request, normalization cannot fail. Transports map a
// DecodeError to a 4xx-equivalent response.
type DecodeError struct {
	// Signal is the endpoint the payload arrived on.
	Signal Signal

	// ContentType is the declared payload encoding.
	ContentType string

	// Err is the underlying proto/JSON decode failure.
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s payload (%s): %v", e.Signal, e.ContentType, e.Err)
}

// Unwrap exposes the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeTraces parses an OTLP trace export request from wire bytes.
// Protobuf and JSON encodings are accepted; anything else, or a payload that
// does not parse, returns a *DecodeError.
func DecodeTraces(contentType string, body []byte) (*coltracepb.ExportTraceServiceRequest, error) {
	req := &coltracepb.ExportTraceServiceRequest{}
	if err := decodeMessage(contentType, body, req); err != nil {
		return nil, &DecodeError{Signal: SignalTrace, ContentType: contentType, Err: err}
	}
	return req, nil
}

// DecodeMetrics parses an OTLP metrics export request from wire bytes.
func DecodeMetrics(contentType string, body []byte) (*colmetricpb.ExportMetricsServiceRequest, error) {
	req := &colmetricpb.ExportMetricsServiceRequest{}
	if err := decodeMessage(contentType, body, req); err != nil {
		return nil, &DecodeError{Signal: SignalMetric, ContentType: contentType, Err: err}
	}
	return req, nil
}

// DecodeLogs parses an OTLP logs export request from wire bytes.
func DecodeLogs(contentType string, body []byte) (*collogpb.ExportLogsServiceRequest, error) {
	req := &collogpb.ExportLogsServiceRequest{}
	if err := decodeMessage(contentType, body, req); err != nil {
		return nil, &DecodeError{Signal: SignalLog, ContentType: contentType, Err: err}
	}
	return req, nil
}

// decodeMessage unmarshals body into msg according to the declared content
// type. Media-type parameters (charset, etc.) are tolerated.
func decodeMessage(contentType string, body []byte, msg proto.Message) error {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch strings.ToLower(mediaType) {
	case ContentTypeProtobuf:
		return proto.Unmarshal(body, msg)
	case ContentTypeJSON:
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(body, msg)
	default:
		return fmt.Errorf("unsupported content type %q", contentType)
	}
}
