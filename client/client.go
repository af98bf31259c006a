// Package client 提供面向推理服务的高层客户端
package client

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"tritonclient/inference"
	"tritonclient/ml"
	"tritonclient/tensor"
)

// Config 客户端配置
type Config struct {
	URL         string
	Protocol    inference.Protocol
	Timeout     time.Duration
	CacheSize   int
	InputName   string
	OutputNames []string
	Logger      *zap.Logger
	DialOptions []grpc.DialOption
}

// DefaultConfig 默认客户端配置
func DefaultConfig() Config {
	return Config{
		URL:         "localhost:8000",
		Protocol:    inference.ProtocolHTTP,
		CacheSize:   inference.DefaultCacheSize,
		InputName:   "input",
		OutputNames: []string{inference.DefaultOutputName},
	}
}

// Client wraps one backend, fixed for its lifetime. It is not safe for
// concurrent use; run independent clients instead.
type Client struct {
	backend     inference.Backend
	executor    *inference.Executor
	protocol    inference.Protocol
	url         string
	inputName   string
	outputNames []string
	logger      *zap.Logger
}

// New builds a client for cfg. An unknown protocol yields an error wrapping
// inference.ErrConfiguration.
func New(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backend, err := inference.NewBackend(cfg.Protocol, cfg.URL, inference.Options{
		Timeout:     cfg.Timeout,
		Logger:      logger,
		DialOptions: cfg.DialOptions,
	})
	if err != nil {
		return nil, err
	}
	cached, err := inference.NewCachedBackend(backend, cfg.CacheSize)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	return NewWithBackend(cached, cfg), nil
}

// NewWithBackend builds a client around an existing backend.
func NewWithBackend(backend inference.Backend, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	inputName := cfg.InputName
	if inputName == "" {
		inputName = "input"
	}
	outputNames := cfg.OutputNames
	if len(outputNames) == 0 {
		outputNames = []string{inference.DefaultOutputName}
	}
	logger = logger.With(zap.String("protocol", string(cfg.Protocol)), zap.String("url", cfg.URL))
	return &Client{
		backend:     backend,
		executor:    inference.NewExecutor(logger),
		protocol:    cfg.Protocol,
		url:         cfg.URL,
		inputName:   inputName,
		outputNames: outputNames,
		logger:      logger,
	}
}

// Protocol returns the wire protocol of the client.
func (c *Client) Protocol() inference.Protocol { return c.protocol }

// URL returns the endpoint the client talks to.
func (c *Client) URL() string { return c.url }

// Close releases the backend connection.
func (c *Client) Close() error {
	return c.backend.Close()
}

// CheckServerHealth reports whether the server is live. Transport failures
// are logged and reported as false.
func (c *Client) CheckServerHealth(ctx context.Context) bool {
	live, err := c.backend.IsServerLive(ctx)
	if err != nil {
		c.logger.Error("failed to connect to server", zap.Error(err))
		return false
	}
	if !live {
		c.logger.Error("server is not live")
	}
	return live
}

// ListModels returns the repository index, or an empty list on failure.
func (c *Client) ListModels(ctx context.Context) []inference.ModelIndex {
	models, err := c.backend.RepositoryIndex(ctx)
	if err != nil {
		c.logger.Error("failed to list models", zap.Error(err))
		return []inference.ModelIndex{}
	}
	return models
}

// ModelInfo groups the metadata and config of one model.
type ModelInfo struct {
	Metadata *inference.ModelMetadata
	Config   *inference.ModelConfig
}

// GetModelInfo fetches metadata and config of modelName.
func (c *Client) GetModelInfo(ctx context.Context, modelName string) (*ModelInfo, error) {
	meta, err := c.backend.ModelMetadata(ctx, modelName)
	if err != nil {
		c.logger.Error("failed to get model metadata", zap.String("model", modelName), zap.Error(err))
		return nil, err
	}
	cfg, err := c.backend.ModelConfig(ctx, modelName)
	if err != nil {
		c.logger.Error("failed to get model config", zap.String("model", modelName), zap.Error(err))
		return nil, err
	}
	return &ModelInfo{Metadata: meta, Config: cfg}, nil
}

// PrepareInput normalizes data into the input tensors of one request.
func (c *Client) PrepareInput(data any, batchSize int) ([]tensor.InputTensor, error) {
	in, err := tensor.Normalize(data, c.inputName, batchSize)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("input prepared",
		zap.Stringer("shape", in.Shape),
		zap.String("datatype", in.Datatype))
	return []tensor.InputTensor{in}, nil
}

// PrepareOutputs returns the requested output names, defaulting to the
// client configuration.
func (c *Client) PrepareOutputs(names ...string) []string {
	if len(names) == 0 {
		return append([]string(nil), c.outputNames...)
	}
	return names
}

// Infer runs one timed inference call and returns the "output" tensor.
func (c *Client) Infer(ctx context.Context, modelName string, inputs []tensor.InputTensor, outputNames []string) (*tensor.OutputTensor, time.Duration, error) {
	out, latency, err := c.executor.Execute(ctx, c.backend, modelName, inputs, outputNames)
	if err != nil {
		c.logger.Error("inference failed",
			zap.String("model", modelName),
			zap.Duration("latency", latency),
			zap.Error(err))
		return nil, latency, err
	}
	c.logger.Info("inference completed",
		zap.String("model", modelName),
		zap.Duration("latency", latency),
		zap.Stringer("output_shape", out.Shape))
	return out, latency, nil
}

// PredictWithLabels normalizes data, runs inference on modelName and
// interprets the first sample of the output against labels. The measured
// latency is returned whenever the call was sent, including on failure; it
// is zero when the input could not be prepared.
func (c *Client) PredictWithLabels(ctx context.Context, modelName string, data any, labels []string, batchSize int) (*ml.PredictionResult, time.Duration, error) {
	inputs, err := c.PrepareInput(data, batchSize)
	if err != nil {
		c.logger.Error("failed to prepare input", zap.Error(err))
		return nil, 0, err
	}

	out, latency, err := c.Infer(ctx, modelName, inputs, c.PrepareOutputs())
	if err != nil {
		return nil, latency, err
	}

	result, err := ml.InterpretOutput(*out, labels, latency)
	if err != nil {
		err = fmt.Errorf("%w: %w", inference.ErrInference, err)
		c.logger.Error("failed to interpret output", zap.String("model", modelName), zap.Error(err))
		return nil, latency, err
	}
	c.logger.Info("prediction",
		zap.String("model", modelName),
		zap.String("label", result.PredictedLabel),
		zap.Float64("confidence", result.Confidence))
	return result, latency, nil
}
