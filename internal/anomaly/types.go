package anomaly

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// ScoreMethod is the full gRPC method name of the anomaly model.
const ScoreMethod = "/mrv.anomaly.v1.AnomalyService/Score"

// #region types
// Score is the anomaly model output for one reading.
type Score struct {
	IsAnomaly  bool
	Value      float64 // 0-1, higher is more anomalous
	Confidence float64
}

// Scorer scores readings for anomalies.
type Scorer interface {
	Score(ctx context.Context, r telemetry.Reading) (Score, error)
}

// ScoreService is the RPC surface of the anomaly model.
type ScoreService interface {
	Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}
// #endregion types

// #region config
// Config tunes rate limiting and retries of the client.
type Config struct {
	RatePerSecond   float64
	Burst           int
	Timeout         time.Duration // per attempt
	MaxElapsed      time.Duration // across retries
	InitialInterval time.Duration
}

// DefaultConfig returns conservative client settings.
func DefaultConfig() Config {
	return Config{
		RatePerSecond:   10,
		Burst:           1,
		Timeout:         5 * time.Second,
		MaxElapsed:      30 * time.Second,
		InitialInterval: 500 * time.Millisecond,
	}
}
// #endregion config
