package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Master_Group_FullMethodName       = "/pinball.master.v1.Master/Group"
	Master_Query_FullMethodName       = "/pinball.master.v1.Master/Query"
	Master_Modify_FullMethodName      = "/pinball.master.v1.Master/Modify"
	Master_QueryAndOwn_FullMethodName = "/pinball.master.v1.Master/QueryAndOwn"
	Master_Archive_FullMethodName     = "/pinball.master.v1.Master/Archive"
)

// MasterClient is the client API for the Master service.
type MasterClient interface {
	Group(ctx context.Context, in *GroupRequest, opts ...grpc.CallOption) (*GroupResponse, error)
	Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error)
	Modify(ctx context.Context, in *ModifyRequest, opts ...grpc.CallOption) (*ModifyResponse, error)
	QueryAndOwn(ctx context.Context, in *QueryAndOwnRequest, opts ...grpc.CallOption) (*QueryAndOwnResponse, error)
	Archive(ctx context.Context, in *ArchiveRequest, opts ...grpc.CallOption) (*ArchiveResponse, error)
}

type masterClient struct {
	cc grpc.ClientConnInterface
}

func NewMasterClient(cc grpc.ClientConnInterface) MasterClient {
	return &masterClient{cc}
}

func (c *masterClient) Group(ctx context.Context, in *GroupRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	out := new(GroupResponse)
	if err := c.cc.Invoke(ctx, Master_Group_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *masterClient) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error) {
	out := new(QueryResponse)
	if err := c.cc.Invoke(ctx, Master_Query_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *masterClient) Modify(ctx context.Context, in *ModifyRequest, opts ...grpc.CallOption) (*ModifyResponse, error) {
	out := new(ModifyResponse)
	if err := c.cc.Invoke(ctx, Master_Modify_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *masterClient) QueryAndOwn(ctx context.Context, in *QueryAndOwnRequest, opts ...grpc.CallOption) (*QueryAndOwnResponse, error) {
	out := new(QueryAndOwnResponse)
	if err := c.cc.Invoke(ctx, Master_QueryAndOwn_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *masterClient) Archive(ctx context.Context, in *ArchiveRequest, opts ...grpc.CallOption) (*ArchiveResponse, error) {
	out := new(ArchiveResponse)
	if err := c.cc.Invoke(ctx, Master_Archive_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// MasterServer is the server API for the Master service.
type MasterServer interface {
	Group(context.Context, *GroupRequest) (*GroupResponse, error)
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
	Modify(context.Context, *ModifyRequest) (*ModifyResponse, error)
	QueryAndOwn(context.Context, *QueryAndOwnRequest) (*QueryAndOwnResponse, error)
	Archive(context.Context, *ArchiveRequest) (*ArchiveResponse, error)
	mustEmbedUnimplementedMasterServer()
}

// UnimplementedMasterServer must be embedded to have forward compatible implementations.
type UnimplementedMasterServer struct{}

func (UnimplementedMasterServer) Group(context.Context, *GroupRequest) (*GroupResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Group not implemented")
}

func (UnimplementedMasterServer) Query(context.Context, *QueryRequest) (*QueryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Query not implemented")
}

func (UnimplementedMasterServer) Modify(context.Context, *ModifyRequest) (*ModifyResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Modify not implemented")
}

func (UnimplementedMasterServer) QueryAndOwn(context.Context, *QueryAndOwnRequest) (*QueryAndOwnResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method QueryAndOwn not implemented")
}

func (UnimplementedMasterServer) Archive(context.Context, *ArchiveRequest) (*ArchiveResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Archive not implemented")
}

func (UnimplementedMasterServer) mustEmbedUnimplementedMasterServer() {}

func RegisterMasterServer(s grpc.ServiceRegistrar, srv MasterServer) {
	s.RegisterService(&Master_ServiceDesc, srv)
}

func _Master_Group_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GroupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).Group(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Master_Group_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).Group(ctx, req.(*GroupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Master_Query_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Master_Query_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Master_Modify_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ModifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).Modify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Master_Modify_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).Modify(ctx, req.(*ModifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Master_QueryAndOwn_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(QueryAndOwnRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).QueryAndOwn(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Master_QueryAndOwn_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).QueryAndOwn(ctx, req.(*QueryAndOwnRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Master_Archive_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ArchiveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).Archive(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Master_Archive_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).Archive(ctx, req.(*ArchiveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Master_ServiceDesc is the grpc.ServiceDesc for the Master service.
var Master_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pinball.master.v1.Master",
	HandlerType: (*MasterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Group", Handler: _Master_Group_Handler},
		{MethodName: "Query", Handler: _Master_Query_Handler},
		{MethodName: "Modify", Handler: _Master_Modify_Handler},
		{MethodName: "QueryAndOwn", Handler: _Master_QueryAndOwn_Handler},
		{MethodName: "Archive", Handler: _Master_Archive_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "token/v1/token.proto",
}
