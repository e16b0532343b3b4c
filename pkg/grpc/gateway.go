package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The gateway service is small enough to be described by hand: both RPCs take
// a google.protobuf.Struct and return google.protobuf.Empty.
const (
	GatewayServiceName = "gateway.v1.Gateway"

	publishFullMethod           = "/gateway.v1.Gateway/Publish"
	updateMusicConfigFullMethod = "/gateway.v1.Gateway/UpdateMusicConfig"
)

type GatewayServer interface {
	Publish(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	UpdateMusicConfig(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&GatewayServiceDesc, srv)
}

var GatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: GatewayServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: publishHandler},
		{MethodName: "UpdateMusicConfig", Handler: updateMusicConfigHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gateway/v1/gateway.proto",
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: publishFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).Publish(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func updateMusicConfigHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).UpdateMusicConfig(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: updateMusicConfigFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).UpdateMusicConfig(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
