package serving

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// Result is a decoded Predict response.
type Result struct {
	Label         string
	Probabilities map[string]float64
}
// #endregion types

// #region client-struct
// Client wraps the gRPC connection to a prediction server.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}
// #endregion client-struct

// #region constructor
// NewClient connects to addr. Without options the connection is plaintext.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}
// #endregion constructor

// #region close
// Close shuts down the connection if the Client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region predict
// Predict sends one row of column values.
func (c *Client) Predict(ctx context.Context, row map[string]any) (Result, error) {
	req, err := structpb.NewStruct(row)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PredictMethod, req, resp); err != nil {
		return Result{}, fmt.Errorf("predict rpc: %w", err)
	}

	fields := resp.GetFields()
	out := Result{
		Label:         fields["label"].GetStringValue(),
		Probabilities: map[string]float64{},
	}
	for k, v := range fields["probabilities"].GetStructValue().GetFields() {
		out.Probabilities[k] = v.GetNumberValue()
	}
	if out.Label == "" {
		return Result{}, fmt.Errorf("predict rpc: response has no label")
	}
	return out, nil
}
// #endregion predict
