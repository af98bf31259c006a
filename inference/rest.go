package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tritonclient/tensor"
)

// headerContentLength carries the size of the JSON header when a request or
// response body has binary tensor data appended.
const headerContentLength = "Inference-Header-Content-Length"

// RESTBackend talks to the server over the HTTP/REST inference protocol,
// sending tensor payloads through the binary data extension.
type RESTBackend struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRESTBackend creates a REST backend. endpoint may omit the scheme.
func NewRESTBackend(endpoint string, opts Options) *RESTBackend {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return &RESTBackend{
		baseURL: strings.TrimRight(endpoint, "/"),
		client:  client,
		logger:  opts.logger(),
	}
}

type restErrorResponse struct {
	Error string `json:"error"`
}

type restInferParameters struct {
	BinaryDataSize int  `json:"binary_data_size,omitempty"`
	BinaryData     bool `json:"binary_data,omitempty"`
}

type restInferInput struct {
	Name       string               `json:"name"`
	Shape      []int64              `json:"shape"`
	Datatype   string               `json:"datatype"`
	Parameters *restInferParameters `json:"parameters,omitempty"`
}

type restInferOutputRequest struct {
	Name       string               `json:"name"`
	Parameters *restInferParameters `json:"parameters,omitempty"`
}

type restInferRequest struct {
	ID      string                   `json:"id,omitempty"`
	Inputs  []restInferInput         `json:"inputs"`
	Outputs []restInferOutputRequest `json:"outputs,omitempty"`
}

type restInferOutput struct {
	Name       string               `json:"name"`
	Datatype   string               `json:"datatype"`
	Shape      []int64              `json:"shape"`
	Parameters *restInferParameters `json:"parameters,omitempty"`
	Data       []float64            `json:"data,omitempty"`
}

type restInferResponse struct {
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version"`
	ID           string            `json:"id"`
	Outputs      []restInferOutput `json:"outputs"`
}

// IsServerLive probes /v2/health/live.
func (b *RESTBackend) IsServerLive(ctx context.Context) (bool, error) {
	resp, err := b.do(ctx, http.MethodGet, "/v2/health/live", nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

// ModelMetadata fetches declared inputs and outputs of a model.
func (b *RESTBackend) ModelMetadata(ctx context.Context, modelName string) (*ModelMetadata, error) {
	var meta ModelMetadata
	if err := b.getJSON(ctx, "/v2/models/"+url.PathEscape(modelName), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ModelConfig fetches platform and batching configuration of a model.
func (b *RESTBackend) ModelConfig(ctx context.Context, modelName string) (*ModelConfig, error) {
	var cfg ModelConfig
	if err := b.getJSON(ctx, "/v2/models/"+url.PathEscape(modelName)+"/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RepositoryIndex lists the models in the server repository.
func (b *RESTBackend) RepositoryIndex(ctx context.Context) ([]ModelIndex, error) {
	resp, err := b.do(ctx, http.MethodPost, "/v2/repository/index", []byte("{}"), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var models []ModelIndex
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("%w: failed to decode repository index: %w", ErrTransport, err)
	}
	return models, nil
}

// Infer runs one synchronous inference request.
func (b *RESTBackend) Infer(ctx context.Context, req *Request) (*Response, error) {
	body, headerLen, err := encodeRESTRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	path := "/v2/models/" + url.PathEscape(req.ModelName) + "/infer"
	resp, err := b.do(ctx, http.MethodPost, path, body, map[string]string{
		"Content-Type":      "application/octet-stream",
		headerContentLength: strconv.Itoa(headerLen),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrInference, statusError(resp))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrInference, err)
	}
	b.logger.Debug("infer response received",
		zap.String("model", req.ModelName),
		zap.Int("request_bytes", len(body)),
		zap.Int("response_bytes", len(payload)))

	out, err := decodeRESTResponse(payload, resp.Header.Get(headerContentLength))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	return out, nil
}

// Close releases idle connections.
func (b *RESTBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *RESTBackend) do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrTransport, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}

func (b *RESTBackend) getJSON(ctx context.Context, path string, v any) error {
	resp, err := b.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrTransport, err)
	}
	return nil
}

// statusError reads the server error envelope of a non-200 response. Only
// requests addressing a model can yield ErrModelNotFound; a 404 elsewhere
// means the endpoint does not speak the inference protocol.
func statusError(resp *http.Response) error {
	msg := fmt.Sprintf("server returned status %d", resp.StatusCode)
	var apiErr restErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	modelPath := resp.Request != nil && strings.Contains(resp.Request.URL.Path, "/v2/models/")
	if modelPath && (resp.StatusCode == http.StatusNotFound || isUnknownModelMessage(msg)) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
	}
	return fmt.Errorf("%w: %s", ErrTransport, msg)
}

func encodeRESTRequest(req *Request) ([]byte, int, error) {
	body := restInferRequest{
		Inputs:  make([]restInferInput, 0, len(req.Inputs)),
		Outputs: make([]restInferOutputRequest, 0, len(req.Outputs)),
	}
	var raw bytes.Buffer
	for _, in := range req.Inputs {
		contents := in.RawContents()
		body.Inputs = append(body.Inputs, restInferInput{
			Name:       in.Name,
			Shape:      in.Shape.Int64(),
			Datatype:   in.Datatype,
			Parameters: &restInferParameters{BinaryDataSize: len(contents)},
		})
		raw.Write(contents)
	}
	for _, out := range req.Outputs {
		body.Outputs = append(body.Outputs, restInferOutputRequest{
			Name:       out.Name,
			Parameters: &restInferParameters{BinaryData: true},
		})
	}

	header, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal infer request: %w", err)
	}
	return append(header, raw.Bytes()...), len(header), nil
}

func decodeRESTResponse(payload []byte, headerLen string) (*Response, error) {
	jsonPart, binaryPart := payload, []byte(nil)
	if headerLen != "" {
		n, err := strconv.Atoi(headerLen)
		if err != nil || n < 0 || n > len(payload) {
			return nil, fmt.Errorf("invalid %s %q", headerContentLength, headerLen)
		}
		jsonPart, binaryPart = payload[:n], payload[n:]
	}

	var body restInferResponse
	if err := json.Unmarshal(jsonPart, &body); err != nil {
		return nil, fmt.Errorf("failed to decode infer response: %w", err)
	}

	out := &Response{
		ModelName:    body.ModelName,
		ModelVersion: body.ModelVersion,
		ID:           body.ID,
		Outputs:      make(map[string]tensor.OutputTensor, len(body.Outputs)),
	}
	offset := 0
	for _, o := range body.Outputs {
		t := tensor.OutputTensor{
			Name:     o.Name,
			Shape:    tensor.ShapeFromInt64(o.Shape),
			Datatype: o.Datatype,
		}
		if o.Parameters != nil && o.Parameters.BinaryDataSize > 0 {
			size := o.Parameters.BinaryDataSize
			if offset+size > len(binaryPart) {
				return nil, fmt.Errorf("output %q: binary data truncated", o.Name)
			}
			if o.Datatype != tensor.DatatypeFP32 {
				return nil, fmt.Errorf("output %q: unsupported binary datatype %s", o.Name, o.Datatype)
			}
			values, err := tensor.DecodeFP32(binaryPart[offset : offset+size])
			if err != nil {
				return nil, fmt.Errorf("output %q: %w", o.Name, err)
			}
			t.Data = values
			offset += size
		} else {
			t.Data = make([]float32, len(o.Data))
			for i, v := range o.Data {
				t.Data[i] = float32(v)
			}
		}
		if err := t.CheckLength(); err != nil {
			return nil, err
		}
		out.Outputs[o.Name] = t
	}
	return out, nil
}

var _ Backend = (*RESTBackend)(nil)
