package service

import (
	"context"
)

// ImageSize is the square edge the classifier was trained on.
const ImageSize = 128

// Channels is the RGB depth of one pixel in the input tensor.
const Channels = 3

// InputLen is the number of float32 values in one NHWC input batch of one.
const InputLen = ImageSize * ImageSize * Channels

// Prediction is what /predict returns on success. Confidence is the model's
// float32 score widened to float64, so it encodes as e.g. 0.8999999761581421.
type Prediction struct {
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
}

// Classifier runs one forward pass over a preprocessed [1,128,128,3] tensor
// and returns one score per class. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, input []float32) ([]float32, error)
	Close() error
}
