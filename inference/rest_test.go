package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tritonclient/tensor"
)

// fakeTriton serves the subset of the HTTP inference protocol used by the client.
type fakeTriton struct {
	lastInput  restInferRequest
	lastRaw    []byte
	jsonOutput  bool
	dropOutput  bool
	shortOutput bool
}

func (f *fakeTriton) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v2/models/Times_Classify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ModelMetadata{
			Name:     "Times_Classify",
			Versions: []string{"1"},
			Platform: "onnxruntime_onnx",
			Inputs:   []TensorMetadata{{Name: "input", Datatype: "FP32", Shape: []int64{-1, 20, 14}}},
			Outputs:  []TensorMetadata{{Name: "output", Datatype: "FP32", Shape: []int64{-1, 2}}},
		})
	})
	mux.HandleFunc("/v2/models/Times_Classify/config", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Times_Classify","platform":"onnxruntime_onnx","backend":"onnxruntime","max_batch_size":8,"input":[]}`))
	})
	mux.HandleFunc("/v2/models/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Request for unknown model: 'missing' is not found"}`))
	})
	mux.HandleFunc("/v2/repository/index", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`[{"name":"Times_Classify","version":"1","state":"READY"},{"name":"old","state":"UNAVAILABLE","reason":"unloaded"}]`))
	})
	mux.HandleFunc("/v2/models/Times_Classify/infer", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		n, err := strconv.Atoi(r.Header.Get(headerContentLength))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"missing header length"}`))
			return
		}
		if err := json.Unmarshal(body[:n], &f.lastInput); err != nil {
			t.Errorf("bad request json: %v", err)
		}
		f.lastRaw = body[n:]

		batch := f.lastInput.Inputs[0].Shape[0]
		logits := make([]float32, 0, 2*batch)
		for i := int64(0); i < batch; i++ {
			logits = append(logits, 2, -1)
		}

		if f.shortOutput {
			logits = logits[:len(logits)-1]
		}
		if f.dropOutput {
			w.Write([]byte(`{"model_name":"Times_Classify","outputs":[]}`))
			return
		}
		if f.jsonOutput {
			json.NewEncoder(w).Encode(map[string]any{
				"model_name": "Times_Classify",
				"outputs": []map[string]any{{
					"name": "output", "datatype": "FP32", "shape": []int64{batch, 2}, "data": logits,
				}},
			})
			return
		}

		raw := tensor.EncodeFP32(logits)
		header, _ := json.Marshal(restInferResponse{
			ModelName:    "Times_Classify",
			ModelVersion: "1",
			Outputs: []restInferOutput{{
				Name:       "output",
				Datatype:   "FP32",
				Shape:      []int64{batch, 2},
				Parameters: &restInferParameters{BinaryDataSize: len(raw)},
			}},
		})
		w.Header().Set(headerContentLength, strconv.Itoa(len(header)))
		w.Write(append(header, raw...))
	})
	return mux
}

func newRESTFixture(t *testing.T) (*fakeTriton, *RESTBackend) {
	t.Helper()
	fake := &fakeTriton{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return fake, NewRESTBackend(srv.URL, Options{})
}

func windowInput(batch int) tensor.InputTensor {
	data := make([]float32, batch*tensor.WindowRows*tensor.WindowCols)
	for i := range data {
		data[i] = float32(i) * 0.01
	}
	return tensor.InputTensor{
		Name:     "input",
		Shape:    tensor.Shape{batch, tensor.WindowRows, tensor.WindowCols},
		Datatype: tensor.DatatypeFP32,
		Data:     data,
	}
}

func TestRESTBackendLiveAndMetadata(t *testing.T) {
	_, b := newRESTFixture(t)
	ctx := context.Background()

	live, err := b.IsServerLive(ctx)
	require.NoError(t, err)
	assert.True(t, live)

	meta, err := b.ModelMetadata(ctx, "Times_Classify")
	require.NoError(t, err)
	assert.Equal(t, "input", meta.Inputs[0].Name)
	assert.Equal(t, []int64{-1, 20, 14}, meta.Inputs[0].Shape)

	cfg, err := b.ModelConfig(ctx, "Times_Classify")
	require.NoError(t, err)
	assert.Equal(t, "onnxruntime_onnx", cfg.Platform)
	assert.Equal(t, 8, cfg.MaxBatchSize)

	models, err := b.RepositoryIndex(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "READY", models[0].State)
	assert.Equal(t, "unloaded", models[1].Reason)
}

func TestRESTBackendUnknownModel(t *testing.T) {
	_, b := newRESTFixture(t)

	_, err := b.ModelMetadata(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrModelNotFound), "got %v", err)

	_, err = b.ModelConfig(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrModelNotFound), "got %v", err)
}

func TestRESTBackendNotFoundOutsideModelPaths(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	b := NewRESTBackend(srv.URL, Options{})

	_, err := b.RepositoryIndex(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrModelNotFound)

	_, err = b.ModelMetadata(context.Background(), "Times_Classify")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestRESTBackendInferBinary(t *testing.T) {
	fake, b := newRESTFixture(t)
	in := windowInput(3)

	resp, err := b.Infer(context.Background(), &Request{
		ModelName: "Times_Classify",
		Inputs:    []tensor.InputTensor{in},
		Outputs:   []tensor.OutputSpec{{Name: "output"}},
	})
	require.NoError(t, err)

	require.Len(t, fake.lastInput.Inputs, 1)
	sent := fake.lastInput.Inputs[0]
	assert.Equal(t, "input", sent.Name)
	assert.Equal(t, "FP32", sent.Datatype)
	assert.Equal(t, []int64{3, 20, 14}, sent.Shape)
	assert.Equal(t, in.RawContents(), fake.lastRaw)
	assert.True(t, fake.lastInput.Outputs[0].Parameters.BinaryData)

	out := resp.Outputs["output"]
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape)
	assert.Equal(t, []float32{2, -1, 2, -1, 2, -1}, out.Data)
	assert.Equal(t, "1", resp.ModelVersion)
}

func TestRESTBackendInferJSONData(t *testing.T) {
	fake, b := newRESTFixture(t)
	fake.jsonOutput = true

	resp, err := b.Infer(context.Background(), &Request{
		ModelName: "Times_Classify",
		Inputs:    []tensor.InputTensor{windowInput(1)},
		Outputs:   []tensor.OutputSpec{{Name: "output"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, -1}, resp.Outputs["output"].Data)
}

func TestRESTBackendInferMissingOutput(t *testing.T) {
	fake, b := newRESTFixture(t)
	fake.dropOutput = true

	out, _, err := NewExecutor(nil).Execute(context.Background(), b, "Times_Classify",
		[]tensor.InputTensor{windowInput(1)}, []string{"output"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrInference)
}

func TestRESTBackendInferShortOutput(t *testing.T) {
	for _, jsonOutput := range []bool{false, true} {
		fake, b := newRESTFixture(t)
		fake.shortOutput = true
		fake.jsonOutput = jsonOutput

		resp, err := b.Infer(context.Background(), &Request{
			ModelName: "Times_Classify",
			Inputs:    []tensor.InputTensor{windowInput(2)},
			Outputs:   []tensor.OutputSpec{{Name: "output"}},
		})
		assert.Nil(t, resp, "json=%v", jsonOutput)
		assert.ErrorIs(t, err, ErrInference, "json=%v", jsonOutput)
		assert.ErrorIs(t, err, tensor.ErrDataShape, "json=%v", jsonOutput)
	}
}

func TestDecodeRESTResponseShapeMismatch(t *testing.T) {
	payload := []byte(`{"outputs":[{"name":"output","datatype":"FP32","shape":[2,2],"data":[0.1,5.0,9.0]}]}`)

	_, err := decodeRESTResponse(payload, "")
	assert.ErrorIs(t, err, tensor.ErrDataShape)
}

func TestRESTBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	b := NewRESTBackend(addr, Options{})
	live, err := b.IsServerLive(context.Background())
	assert.False(t, live)
	assert.ErrorIs(t, err, ErrTransport)

	_, err = b.Infer(context.Background(), &Request{ModelName: "Times_Classify"})
	assert.ErrorIs(t, err, ErrInference)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestDecodeRESTResponseTruncated(t *testing.T) {
	header := []byte(`{"outputs":[{"name":"output","datatype":"FP32","shape":[1,2],"parameters":{"binary_data_size":8}}]}`)
	payload := append(header, 0, 0, 0, 0)

	_, err := decodeRESTResponse(payload, strconv.Itoa(len(header)))
	assert.Error(t, err)

	_, err = decodeRESTResponse(payload, "9999")
	assert.Error(t, err)
}

func TestEncodeRESTRequestLayout(t *testing.T) {
	in := windowInput(1)
	body, n, err := encodeRESTRequest(&Request{
		ModelName: "Times_Classify",
		Inputs:    []tensor.InputTensor{in},
		Outputs:   []tensor.OutputSpec{{Name: "output"}},
	})
	require.NoError(t, err)

	var header restInferRequest
	require.NoError(t, json.Unmarshal(body[:n], &header))
	assert.Equal(t, 4*len(in.Data), header.Inputs[0].Parameters.BinaryDataSize)
	assert.True(t, bytes.Equal(in.RawContents(), body[n:]))
}
