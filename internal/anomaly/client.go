package anomaly

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region service
type serviceClient struct {
	cc grpc.ClientConnInterface
}

// NewScoreService wraps a connection as a ScoreService.
func NewScoreService(cc grpc.ClientConnInterface) ScoreService {
	return &serviceClient{cc: cc}
}

func (c *serviceClient) Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ScoreMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
// #endregion service

// #region client-struct
// Client calls the anomaly model over gRPC with rate limiting and retries.
type Client struct {
	conn    *grpc.ClientConn
	svc     ScoreService
	config  Config
	limiter *rate.Limiter
	log     zerolog.Logger
}
// #endregion client-struct

// #region constructor
// NewClient connects to the anomaly model gRPC server.
func NewClient(addr string, config Config) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	c := NewClientWithService(NewScoreService(conn), config)
	c.conn = conn
	return c, nil
}

// NewClientWithService creates a Client with an injected service.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc ScoreService, config Config) *Client {
	return &Client{
		svc:     svc,
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		log:     log.With().Str("component", "anomaly_client").Logger(),
	}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion constructor

// #region score
// Score asks the model about one reading. Transient RPC failures are
// retried with exponential backoff; invalid requests are not.
func (c *Client) Score(ctx context.Context, r telemetry.Reading) (Score, error) {
	req, err := Features(r)
	if err != nil {
		return Score{}, err
	}

	var resp *structpb.Struct
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		actx := ctx
		if c.config.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()
		}
		out, err := c.svc.Score(actx, req)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			c.log.Warn().Err(err).Str("reading", r.ID).Msg("anomaly score failed, retrying")
			return err
		}
		resp = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.config.MaxElapsed
	if c.config.InitialInterval > 0 {
		b.InitialInterval = c.config.InitialInterval
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return Score{}, fmt.Errorf("score rpc %s: %w", r.ID, err)
	}
	return parseScore(resp), nil
}
// #endregion score

// #region count
// CountAnomalies scores readings in order and counts the anomalous ones.
func CountAnomalies(ctx context.Context, s Scorer, readings []telemetry.Reading) (int, error) {
	n := 0
	for _, r := range readings {
		sc, err := s.Score(ctx, r)
		if err != nil {
			return n, err
		}
		if sc.IsAnomaly {
			n++
		}
	}
	return n, nil
}
// #endregion count

// #region helpers
// Features builds the model request for a reading. Unreported sensors
// are omitted.
func Features(r telemetry.Reading) (*structpb.Struct, error) {
	m := map[string]any{
		"reading_id":    r.ID,
		"device_id":     r.DeviceID,
		"flow_rate":     r.FlowRate,
		"head":          r.HeadHeight,
		"generated_kwh": r.GeneratedKwh,
	}
	if r.PH != nil {
		m["ph"] = *r.PH
	}
	if r.Turbidity != nil {
		m["turbidity"] = *r.Turbidity
	}
	if r.Temperature != nil {
		m["temperature"] = *r.Temperature
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build features %s: %w", r.ID, err)
	}
	return s, nil
}

func parseScore(s *structpb.Struct) Score {
	f := s.GetFields()
	return Score{
		IsAnomaly:  f["is_anomaly"].GetBoolValue(),
		Value:      f["score"].GetNumberValue(),
		Confidence: f["confidence"].GetNumberValue(),
	}
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
// #endregion helpers
