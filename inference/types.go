// Package inference 提供推理服务的协议抽象与推理执行
package inference

import "tritonclient/tensor"

// Protocol selects the wire protocol of a backend.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
)

// DefaultOutputName is the output tensor the executor extracts.
const DefaultOutputName = "output"

// Request 推理请求
type Request struct {
	ModelName string
	Inputs    []tensor.InputTensor
	Outputs   []tensor.OutputSpec
}

// Response 推理响应
type Response struct {
	ModelName    string
	ModelVersion string
	ID           string
	Outputs      map[string]tensor.OutputTensor
}

// TensorMetadata describes one declared model input or output.
type TensorMetadata struct {
	Name     string  `json:"name"`
	Datatype string  `json:"datatype"`
	Shape    []int64 `json:"shape"`
}

// ModelMetadata 模型元数据
type ModelMetadata struct {
	Name     string           `json:"name"`
	Versions []string         `json:"versions,omitempty"`
	Platform string           `json:"platform"`
	Inputs   []TensorMetadata `json:"inputs"`
	Outputs  []TensorMetadata `json:"outputs"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	Name         string `json:"name"`
	Platform     string `json:"platform"`
	Backend      string `json:"backend,omitempty"`
	MaxBatchSize int    `json:"max_batch_size"`
}

// ModelIndex is one entry of the model repository index.
type ModelIndex struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	State   string `json:"state,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
