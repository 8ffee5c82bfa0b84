package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified service name from llm.proto.
const ServiceName = "ttcore.llm.v1.LLMService"

const generateMethod = "/" + ServiceName + "/Generate"

// LLMServiceClient is the client API for LLMService, shaped the way
// protoc-gen-go-grpc would emit it for a single server-streaming RPC.
type LLMServiceClient interface {
	Generate(ctx context.Context, in *GenerateRequest, opts ...grpc.CallOption) (LLMService_GenerateClient, error)
}

type llmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLLMServiceClient builds a client over an existing connection. The
// JSON codec is selected per-call via grpc.CallContentSubtype so the
// connection itself stays codec-agnostic.
func NewLLMServiceClient(cc grpc.ClientConnInterface) LLMServiceClient {
	return &llmServiceClient{cc: cc}
}

func (c *llmServiceClient) Generate(ctx context.Context, in *GenerateRequest, opts ...grpc.CallOption) (LLMService_GenerateClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "Generate",
		ServerStreams: true,
	}, generateMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &llmServiceGenerateClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// LLMService_GenerateClient is the stream handle returned by Generate.
type LLMService_GenerateClient interface {
	Recv() (*GenerateResponse, error)
	grpc.ClientStream
}

type llmServiceGenerateClient struct {
	grpc.ClientStream
}

func (x *llmServiceGenerateClient) Recv() (*GenerateResponse, error) {
	m := new(GenerateResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// LLMServiceServer is the server API for LLMService. Not wired to a
// concrete implementation in this module — the LLM backend is an
// external process (spec §1's "any LLMProvider implementation") — but
// kept here so a reference/stub server can be added without touching
// the wire types.
type LLMServiceServer interface {
	Generate(in *GenerateRequest, stream LLMService_GenerateServer) error
}

// LLMService_GenerateServer is the stream handle passed to a server
// implementation.
type LLMService_GenerateServer interface {
	Send(*GenerateResponse) error
	grpc.ServerStream
}

type llmServiceGenerateServer struct {
	grpc.ServerStream
}

func (x *llmServiceGenerateServer) Send(m *GenerateResponse) error {
	return x.ServerStream.SendMsg(m)
}

func generateHandler(srv any, stream grpc.ServerStream) error {
	m := new(GenerateRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(LLMServiceServer).Generate(m, &llmServiceGenerateServer{stream})
}

// ServiceDesc is the grpc.ServiceDesc for LLMService, for use with
// grpc.Server.RegisterService by a reference server implementation.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LLMServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Generate",
			Handler:       generateHandler,
			ServerStreams: true,
		},
	},
	Metadata: "llm.proto",
}

// RegisterLLMServiceServer registers srv on s under ServiceDesc.
func RegisterLLMServiceServer(s grpc.ServiceRegistrar, srv LLMServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
