package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Predictor runs the decode, preprocess, classify and resolve pipeline for
// one upload.
type Predictor struct {
	loader  *Loader
	catalog *Catalog
	timeout time.Duration
	cache   *lru.Cache[[sha256.Size]byte, Prediction]
}

type PredictorOptions struct {
	Timeout   time.Duration
	CacheSize int
}

func NewPredictor(loader *Loader, catalog *Catalog, opts PredictorOptions) (*Predictor, error) {
	if loader == nil || catalog == nil {
		return nil, errors.New("predictor needs a loader and a catalog")
	}
	p := &Predictor{
		loader:  loader,
		catalog: catalog,
		timeout: opts.Timeout,
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[[sha256.Size]byte, Prediction](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = c
	}
	return p, nil
}

func (p *Predictor) Ready() bool {
	return p.loader.Ready()
}

func (p *Predictor) Catalog() *Catalog {
	return p.catalog
}

// Predict classifies an encoded image.
func (p *Predictor) Predict(ctx context.Context, data []byte) (*Prediction, error) {
	var key [sha256.Size]byte
	if p.cache != nil {
		key = sha256.Sum256(data)
		if hit, ok := p.cache.Get(key); ok {
			return &hit, nil
		}
	}

	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	input := Preprocess(img)

	classifier, err := p.loader.Get()
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	scores, err := classifier.Classify(ctx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(KindTimeout, fmt.Errorf("inference timed out: %w", err))
		}
		return nil, newError(KindInternal, err)
	}
	if len(scores) != p.catalog.Len() {
		return nil, newError(KindInternal, fmt.Errorf("model returned %d scores for %d classes", len(scores), p.catalog.Len()))
	}

	idx, confidence, err := Argmax(scores)
	if err != nil {
		return nil, newError(KindInternal, err)
	}
	pred, err := p.catalog.Resolve(idx, confidence)
	if err != nil {
		return nil, newError(KindInternal, err)
	}

	if p.cache != nil {
		p.cache.Add(key, *pred)
	}
	return pred, nil
}
