package service

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"
)

// meanRedScores scores class 0 by mean red, class 2 by mean green and class 1
// by what is left, so different colours map to different labels.
func meanRedScores(input []float32) []float32 {
	var r, g float32
	for i := 0; i < len(input); i += Channels {
		r += input[i]
		g += input[i+1]
	}
	n := float32(len(input) / Channels)
	r, g = r/n, g/n
	rest := 1 - (r+g)/2
	sum := r + g + rest
	return []float32{r / sum, rest / sum, g / sum}
}

func newTestPredictor(t *testing.T, c Classifier, opts PredictorOptions) *Predictor {
	t.Helper()
	p, err := NewPredictor(NewReadyLoader(c), DefaultCatalog(), opts)
	if err != nil {
		t.Fatalf("new predictor: %v", err)
	}
	return p
}

func TestPredictReturnsCatalogEntry(t *testing.T) {
	fc := &fakeClassifier{scores: fixedScores(0.1, 0.7, 0.2)}
	p := newTestPredictor(t, fc, PredictorOptions{})

	img := encodePNG(t, solidImage(64, 48, color.NRGBA{G: 200, A: 255}))
	got, err := p.Predict(context.Background(), img)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want, _ := DefaultCatalog().Resolve(1, 0.7)
	if *got != *want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	fc := &fakeClassifier{scores: meanRedScores}
	p := newTestPredictor(t, fc, PredictorOptions{})
	img := encodePNG(t, solidImage(200, 200, color.NRGBA{R: 180, G: 40, B: 20, A: 255}))

	a, err := p.Predict(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Predict(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", a.Confidence)
	}
}

func TestPredictCacheSkipsClassifier(t *testing.T) {
	fc := &fakeClassifier{scores: fixedScores(0.8, 0.1, 0.1)}
	p := newTestPredictor(t, fc, PredictorOptions{CacheSize: 4})
	img := encodePNG(t, solidImage(10, 10, color.White))

	for i := 0; i < 3; i++ {
		if _, err := p.Predict(context.Background(), img); err != nil {
			t.Fatal(err)
		}
	}
	if n := fc.calls.Load(); n != 1 {
		t.Fatalf("classifier called %d times, want 1", n)
	}
}

func TestPredictErrorKinds(t *testing.T) {
	png := encodePNG(t, solidImage(10, 10, color.White))

	tests := []struct {
		name string
		p    func(t *testing.T) *Predictor
		data []byte
		want Kind
	}{
		{
			name: "undecodable",
			p: func(t *testing.T) *Predictor {
				return newTestPredictor(t, &fakeClassifier{scores: fixedScores(1, 0, 0)}, PredictorOptions{})
			},
			data: []byte("GIF89a-but-not-really"),
			want: KindDecode,
		},
		{
			name: "model fails to load",
			p: func(t *testing.T) *Predictor {
				l := NewLoader(func() (Classifier, error) { return nil, errors.New("no model") })
				p, err := NewPredictor(l, DefaultCatalog(), PredictorOptions{})
				if err != nil {
					t.Fatal(err)
				}
				return p
			},
			data: png,
			want: KindModelUnavailable,
		},
		{
			name: "inference error",
			p: func(t *testing.T) *Predictor {
				return newTestPredictor(t, &fakeClassifier{err: errors.New("onnx run: bad")}, PredictorOptions{})
			},
			data: png,
			want: KindInternal,
		},
		{
			name: "output width mismatch",
			p: func(t *testing.T) *Predictor {
				return newTestPredictor(t, &fakeClassifier{scores: fixedScores(0.5, 0.5)}, PredictorOptions{})
			},
			data: png,
			want: KindInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p(t).Predict(context.Background(), tt.data)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Fatalf("kind = %v, want %v (err %v)", got, tt.want, err)
			}
			if err.Error() == "" {
				t.Fatalf("empty error message")
			}
		})
	}
}

type slowClassifier struct{}

func (slowClassifier) Classify(ctx context.Context, _ []float32) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowClassifier) Close() error { return nil }

func TestPredictTimeout(t *testing.T) {
	p := newTestPredictor(t, slowClassifier{}, PredictorOptions{Timeout: 20 * time.Millisecond})
	_, err := p.Predict(context.Background(), encodePNG(t, solidImage(4, 4, color.White)))
	if KindOf(err) != KindTimeout {
		t.Fatalf("kind = %v (err %v)", KindOf(err), err)
	}
}

func TestPredictConcurrentRequestsAreIndependent(t *testing.T) {
	fc := &fakeClassifier{scores: meanRedScores}
	p := newTestPredictor(t, fc, PredictorOptions{})

	red := encodePNG(t, solidImage(50, 50, color.NRGBA{R: 255, A: 255}))
	green := encodePNG(t, solidImage(50, 50, color.NRGBA{G: 255, A: 255}))
	wantRed, _ := DefaultCatalog().Resolve(0, 0)
	wantGreen, _ := DefaultCatalog().Resolve(2, 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, want := red, wantRed.Label
			if i%2 == 1 {
				data, want = green, wantGreen.Label
			}
			got, err := p.Predict(context.Background(), data)
			if err != nil {
				t.Errorf("predict: %v", err)
				return
			}
			if got.Label != want {
				t.Errorf("request %d got %s, want %s", i, got.Label, want)
			}
		}(i)
	}
	wg.Wait()
}

func TestNewPredictorRequiresDependencies(t *testing.T) {
	if _, err := NewPredictor(nil, DefaultCatalog(), PredictorOptions{}); err == nil {
		t.Fatalf("expected error without loader")
	}
	if _, err := NewPredictor(NewReadyLoader(slowClassifier{}), nil, PredictorOptions{}); err == nil {
		t.Fatalf("expected error without catalog")
	}
}
