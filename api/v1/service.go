package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "tubemp3.v1.DownloaderService"

const (
	DownloaderService_Download_FullMethodName            = "/tubemp3.v1.DownloaderService/Download"
	DownloaderService_Convert_FullMethodName             = "/tubemp3.v1.DownloaderService/Convert"
	DownloaderService_CheckDependencies_FullMethodName   = "/tubemp3.v1.DownloaderService/CheckDependencies"
	DownloaderService_ClearCachedBinaries_FullMethodName = "/tubemp3.v1.DownloaderService/ClearCachedBinaries"
	DownloaderService_GetHistory_FullMethodName          = "/tubemp3.v1.DownloaderService/GetHistory"
	DownloaderService_ClearHistory_FullMethodName        = "/tubemp3.v1.DownloaderService/ClearHistory"
	DownloaderService_GetPreferences_FullMethodName      = "/tubemp3.v1.DownloaderService/GetPreferences"
	DownloaderService_SavePreferences_FullMethodName     = "/tubemp3.v1.DownloaderService/SavePreferences"
)

// DownloaderServiceServer is the server API for DownloaderService
type DownloaderServiceServer interface {
	Download(*DownloadRequest, grpc.ServerStreamingServer[DownloadEvent]) error
	Convert(*ConvertRequest, grpc.ServerStreamingServer[ConvertEvent]) error
	CheckDependencies(context.Context, *CheckDependenciesRequest) (*CheckDependenciesResponse, error)
	ClearCachedBinaries(context.Context, *ClearCachedBinariesRequest) (*ClearCachedBinariesResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
	ClearHistory(context.Context, *ClearHistoryRequest) (*ClearHistoryResponse, error)
	GetPreferences(context.Context, *GetPreferencesRequest) (*GetPreferencesResponse, error)
	SavePreferences(context.Context, *SavePreferencesRequest) (*SavePreferencesResponse, error)
	mustEmbedUnimplementedDownloaderServiceServer()
}

// UnimplementedDownloaderServiceServer must be embedded by implementations
type UnimplementedDownloaderServiceServer struct{}

func (UnimplementedDownloaderServiceServer) Download(*DownloadRequest, grpc.ServerStreamingServer[DownloadEvent]) error {
	return status.Error(codes.Unimplemented, "method Download not implemented")
}
func (UnimplementedDownloaderServiceServer) Convert(*ConvertRequest, grpc.ServerStreamingServer[ConvertEvent]) error {
	return status.Error(codes.Unimplemented, "method Convert not implemented")
}
func (UnimplementedDownloaderServiceServer) CheckDependencies(context.Context, *CheckDependenciesRequest) (*CheckDependenciesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckDependencies not implemented")
}
func (UnimplementedDownloaderServiceServer) ClearCachedBinaries(context.Context, *ClearCachedBinariesRequest) (*ClearCachedBinariesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearCachedBinaries not implemented")
}
func (UnimplementedDownloaderServiceServer) GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHistory not implemented")
}
func (UnimplementedDownloaderServiceServer) ClearHistory(context.Context, *ClearHistoryRequest) (*ClearHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearHistory not implemented")
}
func (UnimplementedDownloaderServiceServer) GetPreferences(context.Context, *GetPreferencesRequest) (*GetPreferencesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPreferences not implemented")
}
func (UnimplementedDownloaderServiceServer) SavePreferences(context.Context, *SavePreferencesRequest) (*SavePreferencesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SavePreferences not implemented")
}
func (UnimplementedDownloaderServiceServer) mustEmbedUnimplementedDownloaderServiceServer() {}

// RegisterDownloaderServiceServer registers srv on s
func RegisterDownloaderServiceServer(s grpc.ServiceRegistrar, srv DownloaderServiceServer) {
	s.RegisterService(&DownloaderService_ServiceDesc, srv)
}

// unaryHandler adapts a typed unary method to grpc.MethodHandler
func unaryHandler[Req, Res any](fullMethod string, call func(DownloaderServiceServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DownloaderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DownloaderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// serverStreamHandler adapts a typed server-streaming method to grpc.StreamHandler
func serverStreamHandler[Req, Res any](call func(DownloaderServiceServer, *Req, grpc.ServerStreamingServer[Res]) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(Req)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv.(DownloaderServiceServer), in, &grpc.GenericServerStream[Req, Res]{ServerStream: stream})
	}
}

// DownloaderService_ServiceDesc is the grpc.ServiceDesc for DownloaderService
var DownloaderService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DownloaderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckDependencies",
			Handler: unaryHandler(DownloaderService_CheckDependencies_FullMethodName,
				DownloaderServiceServer.CheckDependencies),
		},
		{
			MethodName: "ClearCachedBinaries",
			Handler: unaryHandler(DownloaderService_ClearCachedBinaries_FullMethodName,
				DownloaderServiceServer.ClearCachedBinaries),
		},
		{
			MethodName: "GetHistory",
			Handler:    unaryHandler(DownloaderService_GetHistory_FullMethodName, DownloaderServiceServer.GetHistory),
		},
		{
			MethodName: "ClearHistory",
			Handler:    unaryHandler(DownloaderService_ClearHistory_FullMethodName, DownloaderServiceServer.ClearHistory),
		},
		{
			MethodName: "GetPreferences",
			Handler:    unaryHandler(DownloaderService_GetPreferences_FullMethodName, DownloaderServiceServer.GetPreferences),
		},
		{
			MethodName: "SavePreferences",
			Handler:    unaryHandler(DownloaderService_SavePreferences_FullMethodName, DownloaderServiceServer.SavePreferences),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Download",
			Handler:       serverStreamHandler(DownloaderServiceServer.Download),
			ServerStreams: true,
		},
		{
			StreamName:    "Convert",
			Handler:       serverStreamHandler(DownloaderServiceServer.Convert),
			ServerStreams: true,
		},
	},
	Metadata: "tubemp3/v1/downloader.json",
}

// DownloaderServiceClient is the client API for DownloaderService.
// Calls always use the json content-subtype.
type DownloaderServiceClient interface {
	Download(ctx context.Context, in *DownloadRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DownloadEvent], error)
	Convert(ctx context.Context, in *ConvertRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ConvertEvent], error)
	CheckDependencies(ctx context.Context, in *CheckDependenciesRequest, opts ...grpc.CallOption) (*CheckDependenciesResponse, error)
	ClearCachedBinaries(ctx context.Context, in *ClearCachedBinariesRequest, opts ...grpc.CallOption) (*ClearCachedBinariesResponse, error)
	GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error)
	ClearHistory(ctx context.Context, in *ClearHistoryRequest, opts ...grpc.CallOption) (*ClearHistoryResponse, error)
	GetPreferences(ctx context.Context, in *GetPreferencesRequest, opts ...grpc.CallOption) (*GetPreferencesResponse, error)
	SavePreferences(ctx context.Context, in *SavePreferencesRequest, opts ...grpc.CallOption) (*SavePreferencesResponse, error)
}

type downloaderServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDownloaderServiceClient wraps cc
func NewDownloaderServiceClient(cc grpc.ClientConnInterface) DownloaderServiceClient {
	return &downloaderServiceClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func openServerStream[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Res], error) {
	stream, err := cc.NewStream(ctx, desc, method, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Res]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *downloaderServiceClient) Download(ctx context.Context, in *DownloadRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DownloadEvent], error) {
	return openServerStream[DownloadRequest, DownloadEvent](ctx, c.cc, &DownloaderService_ServiceDesc.Streams[0], DownloaderService_Download_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) Convert(ctx context.Context, in *ConvertRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ConvertEvent], error) {
	return openServerStream[ConvertRequest, ConvertEvent](ctx, c.cc, &DownloaderService_ServiceDesc.Streams[1], DownloaderService_Convert_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) CheckDependencies(ctx context.Context, in *CheckDependenciesRequest, opts ...grpc.CallOption) (*CheckDependenciesResponse, error) {
	return invoke[CheckDependenciesRequest, CheckDependenciesResponse](ctx, c.cc, DownloaderService_CheckDependencies_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) ClearCachedBinaries(ctx context.Context, in *ClearCachedBinariesRequest, opts ...grpc.CallOption) (*ClearCachedBinariesResponse, error) {
	return invoke[ClearCachedBinariesRequest, ClearCachedBinariesResponse](ctx, c.cc, DownloaderService_ClearCachedBinaries_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error) {
	return invoke[GetHistoryRequest, GetHistoryResponse](ctx, c.cc, DownloaderService_GetHistory_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) ClearHistory(ctx context.Context, in *ClearHistoryRequest, opts ...grpc.CallOption) (*ClearHistoryResponse, error) {
	return invoke[ClearHistoryRequest, ClearHistoryResponse](ctx, c.cc, DownloaderService_ClearHistory_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) GetPreferences(ctx context.Context, in *GetPreferencesRequest, opts ...grpc.CallOption) (*GetPreferencesResponse, error) {
	return invoke[GetPreferencesRequest, GetPreferencesResponse](ctx, c.cc, DownloaderService_GetPreferences_FullMethodName, in, opts)
}

func (c *downloaderServiceClient) SavePreferences(ctx context.Context, in *SavePreferencesRequest, opts ...grpc.CallOption) (*SavePreferencesResponse, error) {
	return invoke[SavePreferencesRequest, SavePreferencesResponse](ctx, c.cc, DownloaderService_SavePreferences_FullMethodName, in, opts)
}
