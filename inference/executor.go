package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tritonclient/tensor"
)

// Executor runs one timed inference call against a backend.
type Executor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExecutor creates an executor. A nil logger disables logging.
func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{logger: logger, now: time.Now}
}

// Execute sends inputs to modelName requesting outputNames and returns the
// "output" tensor of the response. The elapsed wall-clock time is returned
// on every path, including failures. There is no retry.
func (e *Executor) Execute(ctx context.Context, backend Backend, modelName string, inputs []tensor.InputTensor, outputNames []string) (*tensor.OutputTensor, time.Duration, error) {
	req := &Request{
		ModelName: modelName,
		Inputs:    inputs,
		Outputs:   make([]tensor.OutputSpec, len(outputNames)),
	}
	for i, name := range outputNames {
		req.Outputs[i] = tensor.OutputSpec{Name: name}
	}

	start := e.now()
	resp, err := backend.Infer(ctx, req)
	elapsed := e.now().Sub(start)
	if err != nil {
		if !errors.Is(err, ErrInference) {
			err = fmt.Errorf("%w: %w", ErrInference, err)
		}
		return nil, elapsed, err
	}

	out, ok := resp.Outputs[DefaultOutputName]
	if !ok {
		return nil, elapsed, fmt.Errorf("%w: response has no %q tensor", ErrInference, DefaultOutputName)
	}
	e.logger.Debug("inference completed",
		zap.String("model", modelName),
		zap.Duration("latency", elapsed),
		zap.Stringer("output_shape", out.Shape),
		zap.String("output_datatype", out.Datatype))
	return &out, elapsed, nil
}
