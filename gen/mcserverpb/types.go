// Package mcserverpb is the telemetry wire contract: hand-authored
// message types and a JSON grpc codec standing in for protoc-generated
// code (no .proto toolchain is run in this build). Message shape
// mirrors the teacher's gen/tap/v1 QueryEvent/WatchResponse (one
// oneof-style event envelope carrying a timestamp and a typed payload),
// reusing google.golang.org/protobuf's well-known Timestamp/Duration
// types exactly as the teacher's server/server.go does
// (timestamppb.New, durationpb.New).
package mcserverpb

import (
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// WatchRequest is the (currently empty) request for the Watch stream.
type WatchRequest struct{}

// EventKind discriminates which optional field of WatchResponse is set.
type EventKind int32

const (
	EventUnknown EventKind = iota
	EventPacketTrace
	EventChatMessage
	EventColumnLoad
)

// WatchResponse is one event pushed down the telemetry stream.
type WatchResponse struct {
	Kind EventKind              `json:"kind"`
	At   *timestamppb.Timestamp `json:"at,omitempty"`

	PacketTrace *PacketTraceEvent `json:"packet_trace,omitempty"`
	ChatMessage *ChatMessageEvent `json:"chat_message,omitempty"`
	ColumnLoad  *ColumnLoadEvent  `json:"column_load,omitempty"`
}

// PacketTraceEvent reports one traced packet (spec §4.8 "traced packet
// ids").
type PacketTraceEvent struct {
	State      string               `json:"state"`
	Direction  string               `json:"direction"`
	PacketName string               `json:"packet_name"`
	Bytes      int32                `json:"bytes"`
	Elapsed    *durationpb.Duration `json:"elapsed,omitempty"`
}

// ChatMessageEvent mirrors one chat.Line onto the telemetry stream.
type ChatMessageEvent struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ColumnLoadEvent reports a column lifecycle transition.
type ColumnLoadEvent struct {
	Dimension int32  `json:"dimension"`
	X         int32  `json:"x"`
	Z         int32  `json:"z"`
	State     string `json:"state"`
}
