package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"tritonclient/tensor"
)

// RPCBackend talks to the server over the gRPC inference protocol.
type RPCBackend struct {
	conn    *grpc.ClientConn
	msgs    *rpcMessages
	timeout time.Duration
	logger  *zap.Logger
}

// NewRPCBackend creates a gRPC backend for endpoint (host:port). The
// connection is established lazily on the first call.
func NewRPCBackend(endpoint string, opts Options) (*RPCBackend, error) {
	msgs, err := newRPCMessages()
	if err != nil {
		return nil, err
	}

	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	dialOpts = append(dialOpts, opts.DialOptions...)
	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create grpc client for %s: %w", ErrTransport, endpoint, err)
	}

	return &RPCBackend{
		conn:    conn,
		msgs:    msgs,
		timeout: opts.Timeout,
		logger:  opts.logger(),
	}, nil
}

func (b *RPCBackend) invoke(ctx context.Context, method string, req, resp proto.Message) error {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()
	return b.conn.Invoke(ctx, rpcService+method, req, resp)
}

// IsServerLive calls ServerLive.
func (b *RPCBackend) IsServerLive(ctx context.Context) (bool, error) {
	resp := b.msgs.new("ServerLiveResponse")
	if err := b.invoke(ctx, "ServerLive", b.msgs.new("ServerLiveRequest"), resp); err != nil {
		return false, rpcError(err)
	}
	return resp.Get(field(resp, "live")).Bool(), nil
}

// ModelMetadata calls ModelMetadata.
func (b *RPCBackend) ModelMetadata(ctx context.Context, modelName string) (*ModelMetadata, error) {
	req := b.msgs.new("ModelMetadataRequest")
	setString(req, "name", modelName)
	resp := b.msgs.new("ModelMetadataResponse")
	if err := b.invoke(ctx, "ModelMetadata", req, resp); err != nil {
		return nil, rpcError(err)
	}

	meta := &ModelMetadata{
		Name:     getString(resp, "name"),
		Versions: getStrings(resp, "versions"),
		Platform: getString(resp, "platform"),
		Inputs:   tensorMetadata(getList(resp, "inputs")),
		Outputs:  tensorMetadata(getList(resp, "outputs")),
	}
	return meta, nil
}

func tensorMetadata(list protoreflect.List) []TensorMetadata {
	out := make([]TensorMetadata, list.Len())
	for i := range out {
		m := list.Get(i).Message()
		out[i] = TensorMetadata{
			Name:     getString(m, "name"),
			Datatype: getString(m, "datatype"),
			Shape:    getShape(m),
		}
	}
	return out
}

// ModelConfig calls ModelConfig.
func (b *RPCBackend) ModelConfig(ctx context.Context, modelName string) (*ModelConfig, error) {
	req := b.msgs.new("ModelConfigRequest")
	setString(req, "name", modelName)
	resp := b.msgs.new("ModelConfigResponse")
	if err := b.invoke(ctx, "ModelConfig", req, resp); err != nil {
		return nil, rpcError(err)
	}

	cfg := resp.Get(field(resp, "config")).Message()
	return &ModelConfig{
		Name:         getString(cfg, "name"),
		Platform:     getString(cfg, "platform"),
		Backend:      getString(cfg, "backend"),
		MaxBatchSize: int(cfg.Get(field(cfg, "max_batch_size")).Int()),
	}, nil
}

// RepositoryIndex calls RepositoryIndex.
func (b *RPCBackend) RepositoryIndex(ctx context.Context) ([]ModelIndex, error) {
	resp := b.msgs.new("RepositoryIndexResponse")
	if err := b.invoke(ctx, "RepositoryIndex", b.msgs.new("RepositoryIndexRequest"), resp); err != nil {
		return nil, rpcError(err)
	}

	list := getList(resp, "models")
	models := make([]ModelIndex, list.Len())
	for i := range models {
		m := list.Get(i).Message()
		models[i] = ModelIndex{
			Name:    getString(m, "name"),
			Version: getString(m, "version"),
			State:   getString(m, "state"),
			Reason:  getString(m, "reason"),
		}
	}
	return models, nil
}

// Infer calls ModelInfer with the inputs carried as raw contents.
func (b *RPCBackend) Infer(ctx context.Context, req *Request) (*Response, error) {
	msg := b.encodeInferRequest(req)
	resp := b.msgs.new("ModelInferResponse")
	if err := b.invoke(ctx, "ModelInfer", msg, resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, rpcError(err))
	}
	b.logger.Debug("infer response received",
		zap.String("model", req.ModelName),
		zap.Int("request_bytes", proto.Size(msg)),
		zap.Int("response_bytes", proto.Size(resp)))

	out, err := decodeRPCResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	return out, nil
}

// Close closes the underlying connection.
func (b *RPCBackend) Close() error {
	return b.conn.Close()
}

func (b *RPCBackend) encodeInferRequest(req *Request) proto.Message {
	msg := b.msgs.new("ModelInferRequest")
	setString(msg, "model_name", req.ModelName)

	inputs := mutableList(msg, "inputs")
	raw := mutableList(msg, "raw_input_contents")
	for _, in := range req.Inputs {
		elem := inputs.NewElement()
		t := elem.Message()
		setString(t, "name", in.Name)
		setString(t, "datatype", in.Datatype)
		setShape(t, in.Shape.Int64())
		inputs.Append(elem)
		raw.Append(protoreflect.ValueOfBytes(in.RawContents()))
	}

	outputs := mutableList(msg, "outputs")
	for _, o := range req.Outputs {
		elem := outputs.NewElement()
		setString(elem.Message(), "name", o.Name)
		outputs.Append(elem)
	}
	return msg
}

func decodeRPCResponse(resp protoreflect.Message) (*Response, error) {
	out := &Response{
		ModelName:    getString(resp, "model_name"),
		ModelVersion: getString(resp, "model_version"),
		ID:           getString(resp, "id"),
		Outputs:      make(map[string]tensor.OutputTensor),
	}

	outputs := getList(resp, "outputs")
	raw := getList(resp, "raw_output_contents")
	for i := 0; i < outputs.Len(); i++ {
		m := outputs.Get(i).Message()
		t := tensor.OutputTensor{
			Name:     getString(m, "name"),
			Datatype: getString(m, "datatype"),
			Shape:    tensor.ShapeFromInt64(getShape(m)),
		}
		if i < raw.Len() {
			if t.Datatype != tensor.DatatypeFP32 {
				return nil, fmt.Errorf("output %q: unsupported raw datatype %s", t.Name, t.Datatype)
			}
			values, err := tensor.DecodeFP32(raw.Get(i).Bytes())
			if err != nil {
				return nil, fmt.Errorf("output %q: %w", t.Name, err)
			}
			t.Data = values
		} else {
			contents := m.Get(field(m, "contents")).Message()
			fp32 := getList(contents, "fp32_contents")
			t.Data = make([]float32, fp32.Len())
			for j := range t.Data {
				t.Data[j] = float32(fp32.Get(j).Float())
			}
		}
		if err := t.CheckLength(); err != nil {
			return nil, err
		}
		out.Outputs[t.Name] = t
	}
	return out, nil
}

// rpcError maps a gRPC status onto the error kinds of this package.
func rpcError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if st.Code() == codes.NotFound || isUnknownModelMessage(st.Message()) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, st.Message())
	}
	return fmt.Errorf("%w: %s: %s", ErrTransport, st.Code(), st.Message())
}

var _ Backend = (*RPCBackend)(nil)
