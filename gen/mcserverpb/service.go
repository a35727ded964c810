package mcserverpb

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified grpc service name, matching the
// naming convention protoc-gen-go-grpc would produce from a
// "mcserver.telemetry.v1" package.
const ServiceName = "mcserver.telemetry.v1.TelemetryService"

// TelemetryServiceServer is the service internal/telemetry implements,
// mirroring the teacher's tapService.Watch shape: a single
// server-streaming RPC with no unary methods.
type TelemetryServiceServer interface {
	Watch(*WatchRequest, TelemetryService_WatchServer) error
}

// TelemetryService_WatchServer is the server-side stream handle.
type TelemetryService_WatchServer interface {
	Send(*WatchResponse) error
	grpc.ServerStream
}

type telemetryServiceWatchServer struct {
	grpc.ServerStream
}

func (x *telemetryServiceWatchServer) Send(m *WatchResponse) error {
	return x.ServerStream.SendMsg(m)
}

func _TelemetryService_Watch_Handler(srv any, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return fmt.Errorf("mcserverpb: watch recv request: %w", err)
	}
	return srv.(TelemetryServiceServer).Watch(m, &telemetryServiceWatchServer{ServerStream: stream})
}

// ServiceDesc is the hand-authored equivalent of protoc-gen-go-grpc's
// generated _ServiceDesc.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _TelemetryService_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "mcserverpb/telemetry.proto",
}

// RegisterTelemetryServiceServer registers srv against s.
func RegisterTelemetryServiceServer(s grpc.ServiceRegistrar, srv TelemetryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// TelemetryServiceClient is the client-side stub.
type TelemetryServiceClient interface {
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (TelemetryService_WatchClient, error)
}

type telemetryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTelemetryServiceClient builds a client stub over cc.
func NewTelemetryServiceClient(cc grpc.ClientConnInterface) TelemetryServiceClient {
	return &telemetryServiceClient{cc: cc}
}

func (c *telemetryServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (TelemetryService_WatchClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/Watch", opts...)
	if err != nil {
		return nil, fmt.Errorf("mcserverpb: watch: %w", err)
	}
	x := &telemetryServiceWatchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, fmt.Errorf("mcserverpb: watch send request: %w", err)
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, fmt.Errorf("mcserverpb: watch close send: %w", err)
	}
	return x, nil
}

// TelemetryService_WatchClient is the client-side stream handle.
type TelemetryService_WatchClient interface {
	Recv() (*WatchResponse, error)
	grpc.ClientStream
}

type telemetryServiceWatchClient struct {
	grpc.ClientStream
}

func (x *telemetryServiceWatchClient) Recv() (*WatchResponse, error) {
	m := new(WatchResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
