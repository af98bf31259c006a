package inference

import (
	"context"
	"errors"

	"tritonclient/tensor"
)

// fakeBackend is an in-memory Backend that records calls.
type fakeBackend struct {
	live      bool
	liveErr   error
	meta      *ModelMetadata
	config    *ModelConfig
	models    []ModelIndex
	outputs   map[string]tensor.OutputTensor
	inferErr  error
	lastReq   *Request
	calls     map[string]int
	closedErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		live:   true,
		meta:   &ModelMetadata{Name: "Times_Classify", Platform: "onnxruntime_onnx"},
		config: &ModelConfig{Name: "Times_Classify", Platform: "onnxruntime_onnx", MaxBatchSize: 8},
		models: []ModelIndex{{Name: "Times_Classify", State: "READY"}},
		outputs: map[string]tensor.OutputTensor{
			"output": {Name: "output", Shape: tensor.Shape{1, 2}, Datatype: tensor.DatatypeFP32, Data: []float32{2, -1}},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeBackend) IsServerLive(ctx context.Context) (bool, error) {
	f.calls["live"]++
	return f.live, f.liveErr
}

func (f *fakeBackend) ModelMetadata(ctx context.Context, modelName string) (*ModelMetadata, error) {
	f.calls["metadata"]++
	if modelName != f.meta.Name {
		return nil, ErrModelNotFound
	}
	return f.meta, nil
}

func (f *fakeBackend) ModelConfig(ctx context.Context, modelName string) (*ModelConfig, error) {
	f.calls["config"]++
	if modelName != f.config.Name {
		return nil, ErrModelNotFound
	}
	return f.config, nil
}

func (f *fakeBackend) RepositoryIndex(ctx context.Context) ([]ModelIndex, error) {
	f.calls["index"]++
	return f.models, nil
}

func (f *fakeBackend) Infer(ctx context.Context, req *Request) (*Response, error) {
	f.calls["infer"]++
	f.lastReq = req
	if f.inferErr != nil {
		return nil, f.inferErr
	}
	return &Response{ModelName: req.ModelName, Outputs: f.outputs}, nil
}

func (f *fakeBackend) Close() error {
	return f.closedErr
}

var errBoom = errors.New("boom")
