package inference

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// rpcService is the fully qualified gRPC service of the inference protocol.
const rpcService = "/inference.GRPCInferenceService/"

// rpcDescriptor holds the subset of grpc_service.proto and model_config.proto
// this client exchanges. Field numbers follow the upstream protocol; fields
// left out are carried as unknown fields and ignored.
const rpcDescriptor = `
name: "inference/grpc_service.proto"
package: "inference"
syntax: "proto3"
message_type: {
  name: "ServerLiveRequest"
}
message_type: {
  name: "ServerLiveResponse"
  field: { name: "live" number: 1 label: LABEL_OPTIONAL type: TYPE_BOOL }
}
message_type: {
  name: "ModelMetadataRequest"
  field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "version" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
}
message_type: {
  name: "ModelMetadataResponse"
  field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "versions" number: 2 label: LABEL_REPEATED type: TYPE_STRING }
  field: { name: "platform" number: 3 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "inputs" number: 4 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inference.ModelMetadataResponse.TensorMetadata" }
  field: { name: "outputs" number: 5 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inference.ModelMetadataResponse.TensorMetadata" }
  nested_type: {
    name: "TensorMetadata"
    field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "datatype" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "shape" number: 3 label: LABEL_REPEATED type: TYPE_INT64 }
  }
}
message_type: {
  name: "ModelConfig"
  field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "platform" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "max_batch_size" number: 4 label: LABEL_OPTIONAL type: TYPE_INT32 }
  field: { name: "backend" number: 17 label: LABEL_OPTIONAL type: TYPE_STRING }
}
message_type: {
  name: "ModelConfigRequest"
  field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "version" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
}
message_type: {
  name: "ModelConfigResponse"
  field: { name: "config" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".inference.ModelConfig" }
}
message_type: {
  name: "RepositoryIndexRequest"
  field: { name: "repository_name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "ready" number: 2 label: LABEL_OPTIONAL type: TYPE_BOOL }
}
message_type: {
  name: "RepositoryIndexResponse"
  field: { name: "models" number: 1 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inference.RepositoryIndexResponse.ModelIndex" }
  nested_type: {
    name: "ModelIndex"
    field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "version" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "state" number: 3 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "reason" number: 4 label: LABEL_OPTIONAL type: TYPE_STRING }
  }
}
message_type: {
  name: "InferTensorContents"
  field: { name: "bool_contents" number: 1 label: LABEL_REPEATED type: TYPE_BOOL }
  field: { name: "int_contents" number: 2 label: LABEL_REPEATED type: TYPE_INT32 }
  field: { name: "int64_contents" number: 3 label: LABEL_REPEATED type: TYPE_INT64 }
  field: { name: "uint_contents" number: 4 label: LABEL_REPEATED type: TYPE_UINT32 }
  field: { name: "uint64_contents" number: 5 label: LABEL_REPEATED type: TYPE_UINT64 }
  field: { name: "fp32_contents" number: 6 label: LABEL_REPEATED type: TYPE_FLOAT }
  field: { name: "fp64_contents" number: 7 label: LABEL_REPEATED type: TYPE_DOUBLE }
  field: { name: "bytes_contents" number: 8 label: LABEL_REPEATED type: TYPE_BYTES }
}
message_type: {
  name: "ModelInferRequest"
  field: { name: "model_name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "model_version" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "id" number: 3 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "inputs" number: 5 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inference.ModelInferRequest.InferInputTensor" }
  field: { name: "outputs" number: 6 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inference.ModelInferRequest.InferRequestedOutputTensor" }
  field: { name: "raw_input_contents" number: 7 label: LABEL_REPEATED type: TYPE_BYTES }
  nested_type: {
    name: "InferInputTensor"
    field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "datatype" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "shape" number: 3 label: LABEL_REPEATED type: TYPE_INT64 }
    field: { name: "contents" number: 5 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".inference.InferTensorContents" }
  }
  nested_type: {
    name: "InferRequestedOutputTensor"
    field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  }
}
message_type: {
  name: "ModelInferResponse"
  field: { name: "model_name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "model_version" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "id" number: 3 label: LABEL_OPTIONAL type: TYPE_STRING }
  field: { name: "outputs" number: 5 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inference.ModelInferResponse.InferOutputTensor" }
  field: { name: "raw_output_contents" number: 6 label: LABEL_REPEATED type: TYPE_BYTES }
  nested_type: {
    name: "InferOutputTensor"
    field: { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "datatype" number: 2 label: LABEL_OPTIONAL type: TYPE_STRING }
    field: { name: "shape" number: 3 label: LABEL_REPEATED type: TYPE_INT64 }
    field: { name: "contents" number: 5 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".inference.InferTensorContents" }
  }
}
`

var (
	schemaOnce sync.Once
	schemaFile protoreflect.FileDescriptor
	schemaErr  error
)

func loadSchema() (protoreflect.FileDescriptor, error) {
	schemaOnce.Do(func() {
		var fdp descriptorpb.FileDescriptorProto
		if err := prototext.Unmarshal([]byte(rpcDescriptor), &fdp); err != nil {
			schemaErr = fmt.Errorf("failed to parse rpc descriptor: %w", err)
			return
		}
		schemaFile, schemaErr = protodesc.NewFile(&fdp, new(protoregistry.Files))
	})
	return schemaFile, schemaErr
}

// rpcMessages builds dynamic messages of the inference protocol.
type rpcMessages struct {
	file protoreflect.FileDescriptor
}

func newRPCMessages() (*rpcMessages, error) {
	file, err := loadSchema()
	if err != nil {
		return nil, err
	}
	return &rpcMessages{file: file}, nil
}

func (m *rpcMessages) new(name string) *dynamicpb.Message {
	desc := m.file.Messages().ByName(protoreflect.Name(name))
	if desc == nil {
		panic("inference: unknown rpc message " + name)
	}
	return dynamicpb.NewMessage(desc)
}

// field returns the descriptor of a field on msg.
func field(msg protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("inference: %s has no field %s", msg.Descriptor().FullName(), name))
	}
	return fd
}

func getString(msg protoreflect.Message, name string) string {
	return msg.Get(field(msg, name)).String()
}

func setString(msg protoreflect.Message, name, value string) {
	msg.Set(field(msg, name), protoreflect.ValueOfString(value))
}

func getList(msg protoreflect.Message, name string) protoreflect.List {
	return msg.Get(field(msg, name)).List()
}

func mutableList(msg protoreflect.Message, name string) protoreflect.List {
	return msg.Mutable(field(msg, name)).List()
}

func getShape(msg protoreflect.Message) []int64 {
	list := getList(msg, "shape")
	shape := make([]int64, list.Len())
	for i := range shape {
		shape[i] = list.Get(i).Int()
	}
	return shape
}

func setShape(msg protoreflect.Message, shape []int64) {
	list := mutableList(msg, "shape")
	for _, d := range shape {
		list.Append(protoreflect.ValueOfInt64(d))
	}
}

func getStrings(msg protoreflect.Message, name string) []string {
	list := getList(msg, name)
	out := make([]string, list.Len())
	for i := range out {
		out[i] = list.Get(i).String()
	}
	return out
}
