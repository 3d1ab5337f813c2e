package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

const (
	// ServiceName is the fully qualified gRPC service name of the bridge.
	ServiceName = "focusd.shield.v1.Bridge"

	// DefaultDrainTimeout bounds how long Stop waits for in-flight calls.
	DefaultDrainTimeout = 5 * time.Second

	codecName  = "json"
	callMethod = "/" + ServiceName + "/Call"
)

// jsonCodec carries envelopes and responses as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// bridgeServer is the handler type of the bridge service.
type bridgeServer interface {
	Call(ctx context.Context, env *Envelope) (*Response, error)
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(bridgeServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: callMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(bridgeServer).Call(ctx, req.(*Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*bridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shield/bridge",
}

// serviceAdapter exposes a Service as the gRPC handler.
type serviceAdapter struct {
	service *Service
}

func (a *serviceAdapter) Call(ctx context.Context, env *Envelope) (*Response, error) {
	req, err := Decode(env)
	if err != nil {
		return &Response{
			RequestID: env.ID,
			Error:     &Error{Code: CodeInvalidRequest, Message: err.Error()},
		}, nil
	}

	resp := a.service.Handle(ctx, req)
	resp.RequestID = env.ID
	return &resp, nil
}

// Server serves the bridge on a unix socket.
type Server struct {
	grpc   *grpc.Server
	logger *zap.Logger
}

// NewServer creates a gRPC server for service.
func NewServer(service *Service, logger *zap.Logger) *Server {
	gs := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	gs.RegisterService(&serviceDesc, &serviceAdapter{service: service})
	return &Server{grpc: gs, logger: logger}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("bridge server: %w", err)
	}
	return nil
}

// Listen opens the unix socket, replacing a stale one left by a dead instance.
// The socket is owner-only.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		lis.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	return lis, nil
}

// Stop drains in-flight calls for up to DefaultDrainTimeout and stops the server.
func (s *Server) Stop() {
	s.StopWithin(DefaultDrainTimeout)
}

// StopWithin drains in-flight calls for up to grace, then closes whatever is
// still open, including a selection picker the user never dismissed.
func (s *Server) StopWithin(grace time.Duration) {
	drained := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(drained)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-drained:
	case <-timer.C:
		s.logger.Warn("bridge drain timed out, closing open calls", zap.Duration("grace", grace))
		s.grpc.Stop()
		<-drained
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{zap.Duration("took", time.Since(start))}
		if env, ok := req.(*Envelope); ok {
			fields = append(fields, zap.String("op", env.Op), zap.String("request_id", env.ID))
		}
		if r, ok := resp.(*Response); ok && r.Error != nil {
			fields = append(fields, zap.String("code", r.Error.Code))
			logger.Warn("bridge request failed", fields...)
			return resp, err
		}
		if err != nil {
			logger.Error("bridge transport error", append(fields, zap.Error(err))...)
			return resp, err
		}
		logger.Debug("bridge request", fields...)
		return resp, err
	}
}

// Client calls the bridge of a running daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial prepares a client for the daemon socket. The connection is made
// lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	abs, err := filepath.Abs(socketPath)
	if err != nil {
		return nil, fmt.Errorf("invalid socket path: %w", err)
	}
	conn, err := grpc.NewClient("unix://"+abs,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", abs, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one request. A non-nil error is a transport failure; request
// failures are reported in the response.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	env, err := Encode(req)
	if err != nil {
		return nil, err
	}
	env.ID = uuid.NewString()

	var resp Response
	if err := c.conn.Invoke(ctx, callMethod, env, &resp, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsUnreachable reports whether err means no daemon is listening.
func IsUnreachable(err error) bool {
	return status.Code(err) == codes.Unavailable
}

// SetBlockList replaces the daemon's block list. The returned warning is
// non-nil when the list was applied but not persisted.
func (c *Client) SetBlockList(ctx context.Context, ids []string) (warning error, err error) {
	resp, err := c.Call(ctx, SetBlockList{Identifiers: ids})
	if err != nil {
		return nil, err
	}
	return warningOf(resp), resp.Err()
}

// SetShieldActive sets the shield flag and returns the resulting state.
func (c *Client) SetShieldActive(ctx context.Context, active bool) (bool, error) {
	resp, err := c.Call(ctx, SetShieldActive{Active: active})
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	return resp.ShieldActive != nil && *resp.ShieldActive, nil
}

// QueryShieldActive returns the current shield flag.
func (c *Client) QueryShieldActive(ctx context.Context) (bool, error) {
	resp, err := c.Call(ctx, QueryShieldActive{})
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	return resp.ShieldActive != nil && *resp.ShieldActive, nil
}

// RequestSelectionUI asks the daemon's host to present its target picker
// and returns the opaque selection.
func (c *Client) RequestSelectionUI(ctx context.Context) (string, error) {
	resp, err := c.Call(ctx, RequestSelectionUI{})
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	return resp.Selection, nil
}

// QueryStatus returns the full engine status.
func (c *Client) QueryStatus(ctx context.Context) (*domain.Status, error) {
	resp, err := c.Call(ctx, QueryStatus{})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, errors.New("status missing from response")
	}
	return resp.Status, nil
}

// ReportForeground pushes one foreground transition to the daemon.
func (c *Client) ReportForeground(ctx context.Context, id string, at time.Time) error {
	resp, err := c.Call(ctx, ReportForeground{Identifier: id, Timestamp: at})
	if err != nil {
		return err
	}
	return resp.Err()
}

func warningOf(resp *Response) error {
	if resp.Warning == nil {
		return nil
	}
	return resp.Warning
}
