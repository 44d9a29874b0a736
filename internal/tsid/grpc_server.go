package tsid

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/metrics"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

// OptimizerServiceName is the fully-qualified gRPC service name.
const OptimizerServiceName = "tsi.v1.OptimizerService"

const (
	optimizeMethod    = "/" + OptimizerServiceName + "/Optimize"
	listEnginesMethod = "/" + OptimizerServiceName + "/ListEngines"
)

// OptimizerServiceServer is the server API for tsi.v1.OptimizerService.
// Messages are google.protobuf.Struct values carrying the same JSON shapes
// as the HTTP API.
type OptimizerServiceServer interface {
	Optimize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEngines(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// OptimizerServiceDesc describes tsi.v1.OptimizerService for grpc.Server.
var OptimizerServiceDesc = grpc.ServiceDesc{
	ServiceName: OptimizerServiceName,
	HandlerType: (*OptimizerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Optimize", Handler: optimizeHandler},
		{MethodName: "ListEngines", Handler: listEnginesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tsi/v1/optimizer.proto",
}

// RegisterOptimizerServiceServer registers srv with s.
func RegisterOptimizerServiceServer(s grpc.ServiceRegistrar, srv OptimizerServiceServer) {
	s.RegisterService(&OptimizerServiceDesc, srv)
}

func optimizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OptimizerServiceServer).Optimize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: optimizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OptimizerServiceServer).Optimize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listEnginesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OptimizerServiceServer).ListEngines(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listEnginesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OptimizerServiceServer).ListEngines(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// OptimizerServiceClient is the client API for tsi.v1.OptimizerService.
type OptimizerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOptimizerServiceClient(cc grpc.ClientConnInterface) *OptimizerServiceClient {
	return &OptimizerServiceClient{cc: cc}
}

func (c *OptimizerServiceClient) Optimize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, optimizeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OptimizerServiceClient) ListEngines(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listEnginesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// OptimizerGRPCServer implements OptimizerServiceServer on top of a Service.
type OptimizerGRPCServer struct {
	service *Service
}

func NewOptimizerGRPCServer(service *Service) *OptimizerGRPCServer {
	return &OptimizerGRPCServer{service: service}
}

func (s *OptimizerGRPCServer) Optimize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	var req OptimizeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request: "+err.Error())
	}

	start := time.Now()
	doc, err := s.service.Optimize(ctx, req, nil)
	metrics.RecordOptimize(s.service.Metrics(), "grpc", time.Since(start), outcome(err))
	if err != nil {
		logger.Debug("grpc optimize failed", "kind", errorKind(err), "error", err)
		return nil, status.Error(grpcCode(err), err.Error())
	}
	return toStruct(doc)
}

// ListEngines accepts optional "propellant" and "name" filters.
func (s *OptimizerGRPCServer) ListEngines(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var filter struct {
		Propellant string `json:"propellant"`
		Name       string `json:"name"`
	}
	if in != nil {
		if err := fromStruct(in, &filter); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid filter: "+err.Error())
		}
	}
	engines := s.service.Catalog().Filter(filter.Propellant, filter.Name)
	if engines == nil {
		engines = []engine.Engine{}
	}
	return toStruct(map[string]any{
		"engines": engines,
		"count":   len(engines),
	})
}

func fromStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
