package serving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/medalfit/internal/inference"
	"github.com/danielpatrickdp/medalfit/internal/onnx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Server answers Predict calls from one bundle.
type Server struct {
	bundle *inference.Bundle
	logger *slog.Logger
}

// NewServer wraps a loaded bundle.
func NewServer(b *inference.Bundle, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{bundle: b, logger: logger}
}

// Predict decodes one row, runs it and returns the label and per-class
// probabilities.
func (s *Server) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := DecodeInput(req, s.bundle.Columns())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, err := s.bundle.Predict(in)
	if err != nil {
		if errors.Is(err, inference.ErrMissingInput) || errors.Is(err, inference.ErrInvalidInput) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("predict failed", "error", err)
		return nil, status.Error(codes.Internal, "prediction failed")
	}
	s.logger.Debug("predict", "label", p.Label)
	resp, err := EncodePrediction(p)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// Serve runs a gRPC server on lis until ctx is cancelled.
func Serve(ctx context.Context, lis net.Listener, srv PredictorServer, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	RegisterPredictorServer(gs, srv)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			gs.GracefulStop()
		case <-done:
		}
	}()

	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}
// #endregion server

// #region codec
// DecodeInput maps a request struct onto the bundle's input columns. Numeric
// columns accept a number or a numeric string; categorical columns accept a
// string.
func DecodeInput(req *structpb.Struct, cols []onnx.ValueInfo) (inference.Input, error) {
	in := inference.Input{Numeric: map[string]float64{}, Categorical: map[string]string{}}
	fields := req.GetFields()
	for _, col := range cols {
		v, ok := fields[col.Name]
		if !ok || v.GetKind() == nil {
			return inference.Input{}, fmt.Errorf("%w: %s", inference.ErrMissingInput, col.Name)
		}
		switch col.ElemType {
		case onnx.Float:
			f, err := numberOf(v)
			if err != nil {
				return inference.Input{}, fmt.Errorf("%w: %s: %v", inference.ErrInvalidInput, col.Name, err)
			}
			in.Numeric[col.Name] = f
		case onnx.String:
			sv, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return inference.Input{}, fmt.Errorf("%w: %s must be a string", inference.ErrInvalidInput, col.Name)
			}
			in.Categorical[col.Name] = sv.StringValue
		default:
			return inference.Input{}, fmt.Errorf("%w: column %s has type %s", inference.ErrInvalidInput, col.Name, col.ElemType)
		}
	}
	return in, nil
}

func numberOf(v *structpb.Value) (float64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(k.StringValue), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", k.StringValue)
		}
		return f, nil
	}
	return 0, errors.New("must be a number")
}

// EncodePrediction builds {"label": ..., "probabilities": {class: p}}.
func EncodePrediction(p inference.Prediction) (*structpb.Struct, error) {
	probs := make(map[string]any, len(p.Classes))
	for i, c := range p.Classes {
		probs[c] = p.Probabilities[i]
	}
	return structpb.NewStruct(map[string]any{
		"label":         p.Label,
		"probabilities": probs,
	})
}
// #endregion codec
