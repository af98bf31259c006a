package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"tritonclient/client"
	"tritonclient/inference"
	"tritonclient/ml"
)

func main() {
	url := flag.String("url", "localhost:8000", "inference server endpoint")
	protocol := flag.String("protocol", "http", "wire protocol: http or grpc")
	model := flag.String("model", "Times_Classify", "model name")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for the random input")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg := client.DefaultConfig()
	cfg.URL = *url
	cfg.Protocol = inference.Protocol(*protocol)
	cfg.Logger = logger
	c, err := client.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if !c.CheckServerHealth(ctx) {
		return
	}
	fmt.Println("Server is live")

	inputs, err := c.PrepareInput(ml.GenerateBatch(*seed), 1)
	if err != nil {
		log.Fatalf("Failed to prepare input: %v", err)
	}
	out, latency, err := c.Infer(ctx, *model, inputs, c.PrepareOutputs())
	if err != nil {
		return
	}

	probs := ml.Softmax(out.FirstSample())
	fmt.Printf("Inference time: %v\n", latency)
	for i, p := range probs {
		fmt.Printf("%s=%.4f\n", ml.ResolveLabel(i, ml.DefaultLabels), p)
	}
}
