package campaignv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "campaign.v1.CampaignService"

	CampaignService_AddCampaign_FullMethodName      = "/campaign.v1.CampaignService/AddCampaign"
	CampaignService_ReadCampaign_FullMethodName     = "/campaign.v1.CampaignService/ReadCampaign"
	CampaignService_Donate_FullMethodName           = "/campaign.v1.CampaignService/Donate"
	CampaignService_Consume_FullMethodName          = "/campaign.v1.CampaignService/Consume"
	CampaignService_Close_FullMethodName            = "/campaign.v1.CampaignService/Close"
	CampaignService_GetEscrowBalance_FullMethodName = "/campaign.v1.CampaignService/GetEscrowBalance"
	CampaignService_ListEvents_FullMethodName       = "/campaign.v1.CampaignService/ListEvents"
)

// CampaignServiceServer is the server API for CampaignService.
type CampaignServiceServer interface {
	AddCampaign(context.Context, *AddCampaignRequest) (*CampaignResponse, error)
	ReadCampaign(context.Context, *ReadCampaignRequest) (*CampaignResponse, error)
	Donate(context.Context, *DonateRequest) (*CampaignResponse, error)
	Consume(context.Context, *ConsumeRequest) (*CampaignResponse, error)
	Close(context.Context, *CloseRequest) (*CloseResponse, error)
	GetEscrowBalance(context.Context, *GetEscrowBalanceRequest) (*GetEscrowBalanceResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
}

// UnimplementedCampaignServiceServer answers every method with codes.Unimplemented.
type UnimplementedCampaignServiceServer struct{}

func (UnimplementedCampaignServiceServer) AddCampaign(context.Context, *AddCampaignRequest) (*CampaignResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddCampaign not implemented")
}

func (UnimplementedCampaignServiceServer) ReadCampaign(context.Context, *ReadCampaignRequest) (*CampaignResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReadCampaign not implemented")
}

func (UnimplementedCampaignServiceServer) Donate(context.Context, *DonateRequest) (*CampaignResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Donate not implemented")
}

func (UnimplementedCampaignServiceServer) Consume(context.Context, *ConsumeRequest) (*CampaignResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Consume not implemented")
}

func (UnimplementedCampaignServiceServer) Close(context.Context, *CloseRequest) (*CloseResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Close not implemented")
}

func (UnimplementedCampaignServiceServer) GetEscrowBalance(context.Context, *GetEscrowBalanceRequest) (*GetEscrowBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEscrowBalance not implemented")
}

func (UnimplementedCampaignServiceServer) ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEvents not implemented")
}

// RegisterCampaignServiceServer registers srv on the registrar.
// A *grpc.Server must be built with ServerCodec.
func RegisterCampaignServiceServer(registrar grpc.ServiceRegistrar, srv CampaignServiceServer) {
	registrar.RegisterService(&CampaignService_ServiceDesc, srv)
}

// CampaignService_ServiceDesc describes CampaignService for grpc.Server.
var CampaignService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CampaignServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddCampaign",
			Handler: unaryHandler(CampaignService_AddCampaign_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *AddCampaignRequest) (*CampaignResponse, error) {
				return srv.AddCampaign(ctx, request)
			}),
		},
		{
			MethodName: "ReadCampaign",
			Handler: unaryHandler(CampaignService_ReadCampaign_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *ReadCampaignRequest) (*CampaignResponse, error) {
				return srv.ReadCampaign(ctx, request)
			}),
		},
		{
			MethodName: "Donate",
			Handler: unaryHandler(CampaignService_Donate_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *DonateRequest) (*CampaignResponse, error) {
				return srv.Donate(ctx, request)
			}),
		},
		{
			MethodName: "Consume",
			Handler: unaryHandler(CampaignService_Consume_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *ConsumeRequest) (*CampaignResponse, error) {
				return srv.Consume(ctx, request)
			}),
		},
		{
			MethodName: "Close",
			Handler: unaryHandler(CampaignService_Close_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *CloseRequest) (*CloseResponse, error) {
				return srv.Close(ctx, request)
			}),
		},
		{
			MethodName: "GetEscrowBalance",
			Handler: unaryHandler(CampaignService_GetEscrowBalance_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *GetEscrowBalanceRequest) (*GetEscrowBalanceResponse, error) {
				return srv.GetEscrowBalance(ctx, request)
			}),
		},
		{
			MethodName: "ListEvents",
			Handler: unaryHandler(CampaignService_ListEvents_FullMethodName, func(srv CampaignServiceServer, ctx context.Context, request *ListEventsRequest) (*ListEventsResponse, error) {
				return srv.ListEvents(ctx, request)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/campaign/v1/campaign.proto",
}

func unaryHandler[Request any, Response any](fullMethod string, call func(CampaignServiceServer, context.Context, *Request) (*Response, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, decode func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		request := new(Request)
		if err := decode(request); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CampaignServiceServer), ctx, request)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, request any) (any, error) {
			return call(srv.(CampaignServiceServer), ctx, request.(*Request))
		}
		return interceptor(ctx, request, info, handler)
	}
}

// CampaignServiceClient is the client API for CampaignService.
type CampaignServiceClient interface {
	AddCampaign(ctx context.Context, in *AddCampaignRequest, opts ...grpc.CallOption) (*CampaignResponse, error)
	ReadCampaign(ctx context.Context, in *ReadCampaignRequest, opts ...grpc.CallOption) (*CampaignResponse, error)
	Donate(ctx context.Context, in *DonateRequest, opts ...grpc.CallOption) (*CampaignResponse, error)
	Consume(ctx context.Context, in *ConsumeRequest, opts ...grpc.CallOption) (*CampaignResponse, error)
	Close(ctx context.Context, in *CloseRequest, opts ...grpc.CallOption) (*CloseResponse, error)
	GetEscrowBalance(ctx context.Context, in *GetEscrowBalanceRequest, opts ...grpc.CallOption) (*GetEscrowBalanceResponse, error)
	ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error)
}

type campaignServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCampaignServiceClient returns a client that encodes every call with Codec.
func NewCampaignServiceClient(cc grpc.ClientConnInterface) CampaignServiceClient {
	return &campaignServiceClient{cc: cc}
}

func (client *campaignServiceClient) AddCampaign(ctx context.Context, in *AddCampaignRequest, opts ...grpc.CallOption) (*CampaignResponse, error) {
	return invoke[CampaignResponse](ctx, client.cc, CampaignService_AddCampaign_FullMethodName, in, opts)
}

func (client *campaignServiceClient) ReadCampaign(ctx context.Context, in *ReadCampaignRequest, opts ...grpc.CallOption) (*CampaignResponse, error) {
	return invoke[CampaignResponse](ctx, client.cc, CampaignService_ReadCampaign_FullMethodName, in, opts)
}

func (client *campaignServiceClient) Donate(ctx context.Context, in *DonateRequest, opts ...grpc.CallOption) (*CampaignResponse, error) {
	return invoke[CampaignResponse](ctx, client.cc, CampaignService_Donate_FullMethodName, in, opts)
}

func (client *campaignServiceClient) Consume(ctx context.Context, in *ConsumeRequest, opts ...grpc.CallOption) (*CampaignResponse, error) {
	return invoke[CampaignResponse](ctx, client.cc, CampaignService_Consume_FullMethodName, in, opts)
}

func (client *campaignServiceClient) Close(ctx context.Context, in *CloseRequest, opts ...grpc.CallOption) (*CloseResponse, error) {
	return invoke[CloseResponse](ctx, client.cc, CampaignService_Close_FullMethodName, in, opts)
}

func (client *campaignServiceClient) GetEscrowBalance(ctx context.Context, in *GetEscrowBalanceRequest, opts ...grpc.CallOption) (*GetEscrowBalanceResponse, error) {
	return invoke[GetEscrowBalanceResponse](ctx, client.cc, CampaignService_GetEscrowBalance_FullMethodName, in, opts)
}

func (client *campaignServiceClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, client.cc, CampaignService_ListEvents_FullMethodName, in, opts)
}

func invoke[Response any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Response, error) {
	out := new(Response)
	callOptions := append([]grpc.CallOption{grpc.ForceCodec(Codec())}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOptions...); err != nil {
		return nil, err
	}
	return out, nil
}
