//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNXEnvironment loads the shared library once per process.
func initONNXEnvironment(libraryPath string) error {
	ortInitOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXEngine runs a BERT-style encoder through onnxruntime.
type ONNXEngine struct {
	session    *ort.DynamicAdvancedSession
	dimension  int
	outputRank int
}

// NewONNXEngine loads the model at cfg.ModelPath. The session is created
// once; tensors are allocated per call.
func NewONNXEngine(cfg LocalConfig) (InferenceEngine, error) {
	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = GetONNXLibraryPath()
	}
	if err := initONNXEnvironment(libPath); err != nil {
		return nil, fmt.Errorf("%w: initializing onnxruntime: %v", ErrProviderUnavailable, err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: creating session options: %v", ErrProviderUnavailable, err)
	}
	defer opts.Destroy()

	if cfg.UseGPU {
		cuda, err := ort.NewCUDAProviderOptions()
		if err == nil {
			defer cuda.Destroy()
			err = opts.AppendExecutionProviderCUDA(cuda)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: enabling CUDA: %v", ErrProviderUnavailable, err)
		}
	}

	outputName := cfg.OutputName
	if outputName == "" {
		outputName = "last_hidden_state"
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{outputName},
		opts)
	if err != nil {
		return nil, fmt.Errorf("%w: loading model %s: %v", ErrProviderUnavailable, cfg.ModelPath, err)
	}

	rank := cfg.OutputRank
	if rank != 2 {
		rank = 3
	}
	return &ONNXEngine{session: session, dimension: cfg.Dimension, outputRank: rank}, nil
}

// Run executes the model to completion and ignores ctx. All tensors
// created here are released before returning, whether or not inference
// succeeds.
func (e *ONNXEngine) Run(_ context.Context, batch *Batch) (Output, error) {
	inShape := ort.NewShape(batch.Shape()...)
	var tensors []ort.ArbitraryTensor
	defer func() {
		for _, t := range tensors {
			_ = t.Destroy()
		}
	}()

	inputs := make([]ort.ArbitraryTensor, 0, 3)
	for _, data := range [][]int64{batch.InputIDs, batch.AttentionMask, batch.TokenTypeIDs} {
		t, err := ort.NewTensor(inShape, data)
		if err != nil {
			return Output{}, fmt.Errorf("%w: creating input tensor: %v", ErrEmbeddingFailed, err)
		}
		tensors = append(tensors, t)
		inputs = append(inputs, t)
	}

	outShape := ort.NewShape(int64(batch.BatchSize), int64(batch.SeqLen), int64(e.dimension))
	if e.outputRank == 2 {
		outShape = ort.NewShape(int64(batch.BatchSize), int64(e.dimension))
	}
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return Output{}, fmt.Errorf("%w: creating output tensor: %v", ErrEmbeddingFailed, err)
	}
	tensors = append(tensors, output)

	if err := e.session.Run(inputs, []ort.ArbitraryTensor{output}); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	shape := output.GetShape()
	return Output{
		Shape: append([]int64(nil), shape...),
		Data:  append([]float32(nil), output.GetData()...),
	}, nil
}

// Close destroys the session.
func (e *ONNXEngine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
