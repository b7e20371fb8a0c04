//go:build cgo
// +build cgo

// CLIP ONNX embedder (requires CGO and the onnxruntime shared library).
package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/miru/pkg/utils"
)

const clipImageSize = 224

// Channel normalization constants for openai/clip-vit-base-patch32.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// CLIPEmbedder runs the CLIP text and image encoders through ONNX
// Runtime. Both encoders project into the same space, so a text query
// embedding is directly comparable to stored image embeddings.
type CLIPEmbedder struct {
	dimensions int
	maxTokens  int
	cache      *EmbeddingCache
	tokenizer  Tokenizer

	textSession         *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	textOutputTensor    *ort.Tensor[float32]

	imageSession      *ort.AdvancedSession
	pixelValuesTensor *ort.Tensor[float32]
	imageOutputTensor *ort.Tensor[float32]

	mu sync.Mutex
}

// NewCLIPEmbedder creates sessions for the text and image encoder
// models. InitializeEnvironment is called if not already done.
func NewCLIPEmbedder(textModelPath, imageModelPath string, dimensions, maxTokens, cacheSize int) (*CLIPEmbedder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 77
	}

	e := &CLIPEmbedder{
		dimensions: dimensions,
		maxTokens:  maxTokens,
		cache:      NewEmbeddingCache(cacheSize),
		tokenizer:  &SimpleTokenizer{},
	}

	inputIDs, attentionMask := e.tokenizer.Tokenize("", maxTokens)
	var err error
	e.inputIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	e.attentionMaskTensor, err = ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	e.textOutputTensor, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}
	e.textSession, err = ort.NewAdvancedSession(
		textModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor},
		[]ort.ArbitraryTensor{e.textOutputTensor},
		nil,
	)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text session: %w", err)
	}

	e.pixelValuesTensor, err = ort.NewTensor(
		ort.NewShape(1, 3, clipImageSize, clipImageSize),
		make([]float32, 3*clipImageSize*clipImageSize),
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	e.imageOutputTensor, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create image output tensor: %w", err)
	}
	e.imageSession, err = ort.NewAdvancedSession(
		imageModelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{e.pixelValuesTensor},
		[]ort.ArbitraryTensor{e.imageOutputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create image session: %w", err)
	}

	return e, nil
}

// EmbedText returns the normalized text embedding, using the cache
// when available.
func (e *CLIPEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)

	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.textOutputTensor.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EmbedImage loads, resizes, and normalizes the image at path, then
// runs the image encoder.
func (e *CLIPEmbedder) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	resized := imaging.Fill(src, clipImageSize, clipImageSize, imaging.Center, imaging.Lanczos)

	e.mu.Lock()
	defer e.mu.Unlock()

	// CHW layout, per-channel normalization
	pixels := e.pixelValuesTensor.GetData()
	plane := clipImageSize * clipImageSize
	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*clipImageSize + x
			pixels[0*plane+idx] = (float32(r)/65535 - clipMean[0]) / clipStd[0]
			pixels[1*plane+idx] = (float32(g)/65535 - clipMean[1]) / clipStd[1]
			pixels[2*plane+idx] = (float32(b)/65535 - clipMean[2]) / clipStd[2]
		}
	}

	if err := e.imageSession.Run(); err != nil {
		return nil, fmt.Errorf("image inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.imageOutputTensor.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *CLIPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the sessions and tensors.
func (e *CLIPEmbedder) Close() error {
	var err error
	if e.textSession != nil {
		err = e.textSession.Destroy()
		e.textSession = nil
	}
	if e.imageSession != nil {
		if derr := e.imageSession.Destroy(); err == nil {
			err = derr
		}
		e.imageSession = nil
	}
	e.destroyTensors()
	return err
}

func (e *CLIPEmbedder) destroyTensors() {
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.textOutputTensor != nil {
		_ = e.textOutputTensor.Destroy()
		e.textOutputTensor = nil
	}
	if e.pixelValuesTensor != nil {
		_ = e.pixelValuesTensor.Destroy()
		e.pixelValuesTensor = nil
	}
	if e.imageOutputTensor != nil {
		_ = e.imageOutputTensor.Destroy()
		e.imageOutputTensor = nil
	}
}
