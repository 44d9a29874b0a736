package tsid

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func leoStruct(t *testing.T) *structpb.Struct {
	t.Helper()
	in, err := structpb.NewStruct(map[string]any{
		"payload_kg":         5000,
		"target_delta_v_mps": 9000,
		"engines":            []any{"Raptor-2"},
		"stage_count":        2,
		"strategy":           "analytical",
	})
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return in
}

func TestGRPCOptimize(t *testing.T) {
	srv := NewOptimizerGRPCServer(newTestService(t))

	out, err := srv.Optimize(context.Background(), leoStruct(t))
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}
	fields := out.GetFields()
	if got := len(fields["stages"].GetListValue().GetValues()); got != 2 {
		t.Errorf("expected 2 stages, got %d", got)
	}
	total := fields["total_mass_kg"].GetNumberValue()
	if total < 167_116 || total > 167_156 {
		t.Errorf("expected total mass near 167136 kg, got %v", total)
	}
}

func TestGRPCOptimizeErrorCodes(t *testing.T) {
	srv := NewOptimizerGRPCServer(newTestService(t))

	infeasible, _ := structpb.NewStruct(map[string]any{
		"payload_kg":         100_000,
		"target_delta_v_mps": 50_000,
		"engines":            []any{"Merlin-1D"},
	})
	unknown, _ := structpb.NewStruct(map[string]any{
		"payload_kg":         5000,
		"target_delta_v_mps": 9000,
		"engines":            []any{"Raptr-2"},
	})
	badField, _ := structpb.NewStruct(map[string]any{"payload_kg": "heavy"})

	tests := []struct {
		name string
		in   *structpb.Struct
		code codes.Code
	}{
		{"nil request", nil, codes.InvalidArgument},
		{"infeasible", infeasible, codes.FailedPrecondition},
		{"unknown engine", unknown, codes.InvalidArgument},
		{"bad field type", badField, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.Optimize(context.Background(), tt.in)
			if status.Code(err) != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestGRPCListEngines(t *testing.T) {
	srv := NewOptimizerGRPCServer(newTestService(t))

	filter, _ := structpb.NewStruct(map[string]any{"propellant": "methalox"})
	out, err := srv.ListEngines(context.Background(), filter)
	if err != nil {
		t.Fatalf("ListEngines error: %v", err)
	}
	engines := out.GetFields()["engines"].GetListValue().GetValues()
	if len(engines) == 0 {
		t.Fatal("expected methalox engines")
	}
	for _, v := range engines {
		if p := v.GetStructValue().GetFields()["propellant"].GetStringValue(); p != "LOX/CH4" {
			t.Errorf("unexpected propellant %q", p)
		}
	}

	all, err := srv.ListEngines(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListEngines error: %v", err)
	}
	if all.GetFields()["count"].GetNumberValue() <= float64(len(engines)) {
		t.Errorf("unfiltered list should be larger than the methalox subset")
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterOptimizerServiceServer(s, NewOptimizerGRPCServer(newTestService(t)))
	go func() {
		_ = s.Serve(lis)
	}()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := NewOptimizerServiceClient(conn)
	out, err := client.Optimize(ctx, leoStruct(t))
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}
	meta := out.GetFields()["metadata"].GetStructValue().GetFields()
	if meta["optimizer"].GetStringValue() != "Analytical" {
		t.Errorf("expected analytical optimizer, got %v", meta["optimizer"])
	}

	unknown, _ := structpb.NewStruct(map[string]any{
		"payload_kg":         5000,
		"target_delta_v_mps": 9000,
		"engines":            []any{"Raptr-2"},
	})
	_, err = client.Optimize(ctx, unknown)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if st, _ := status.FromError(err); st.Message() == "" {
		t.Error("expected error message to cross the wire")
	}

	engines, err := client.ListEngines(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("ListEngines error: %v", err)
	}
	if engines.GetFields()["count"].GetNumberValue() < 10 {
		t.Errorf("expected full catalog, got %v", engines.GetFields()["count"])
	}
}
