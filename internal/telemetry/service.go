package telemetry

import (
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/RobertLeahy/MCPP-sub000/gen/mcserverpb"
)

// service implements mcserverpb.TelemetryServiceServer over a Hub.
type service struct {
	hub *Hub
}

func (s *service) Watch(_ *mcserverpb.WatchRequest, stream mcserverpb.TelemetryService_WatchServer) error {
	ch, unsub := s.hub.Subscribe()
	defer unsub()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("telemetry: watch: %w", ctx.Err())
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(ev); err != nil {
				return fmt.Errorf("telemetry: watch send: %w", err)
			}
		}
	}
}

// Server is the gRPC server exposing the telemetry stream, mirroring the
// teacher's server.Server (Serve/Stop/GracefulStop over a *grpc.Server).
type Server struct {
	grpcServer *grpc.Server
	hub        *Hub
}

// NewServer builds a Server publishing from hub.
func NewServer(hub *Hub) *Server {
	gs := grpc.NewServer()
	mcserverpb.RegisterTelemetryServiceServer(gs, &service{hub: hub})
	return &Server{grpcServer: gs, hub: hub}
}

// Hub returns the event sink handlers should Publish to.
func (s *Server) Hub() *Hub { return s.hub }

// Serve blocks serving lis until the server stops.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("telemetry: serve: %w", err)
	}
	return nil
}

// Stop immediately stops the server, closing all active streams.
func (s *Server) Stop() { s.grpcServer.Stop() }

// GracefulStop gracefully stops the server.
func (s *Server) GracefulStop() { s.grpcServer.GracefulStop() }

// PacketTrace builds a WatchResponse for one traced packet (spec §4.8
// "traced packet ids").
func PacketTrace(state, direction, packetName string, bytes int, elapsed time.Duration) *mcserverpb.WatchResponse {
	return &mcserverpb.WatchResponse{
		Kind: mcserverpb.EventPacketTrace,
		At:   timestamppb.Now(),
		PacketTrace: &mcserverpb.PacketTraceEvent{
			State:      state,
			Direction:  direction,
			PacketName: packetName,
			Bytes:      int32(bytes),
			Elapsed:    durationpb.New(elapsed),
		},
	}
}

// ChatMessage builds a WatchResponse for one chat transcript line.
func ChatMessage(username, message string) *mcserverpb.WatchResponse {
	return &mcserverpb.WatchResponse{
		Kind: mcserverpb.EventChatMessage,
		At:   timestamppb.Now(),
		ChatMessage: &mcserverpb.ChatMessageEvent{
			Username: username,
			Message:  message,
		},
	}
}

// ColumnLoad builds a WatchResponse for a column lifecycle transition.
func ColumnLoad(dimension int8, x, z int32, state string) *mcserverpb.WatchResponse {
	return &mcserverpb.WatchResponse{
		Kind: mcserverpb.EventColumnLoad,
		At:   timestamppb.Now(),
		ColumnLoad: &mcserverpb.ColumnLoadEvent{
			Dimension: int32(dimension),
			X:         x,
			Z:         z,
			State:     state,
		},
	}
}
