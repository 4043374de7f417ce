package server

import (
	"fmt"
	"log/slog"

	"github.com/sunu-agro/leafscan/config"
	"github.com/sunu-agro/leafscan/onnx"
	"github.com/sunu-agro/leafscan/service"
)

// Init builds the predictor described by c. Unless c.LazyLoad is set the
// model is loaded before Init returns and a load failure is returned.
func Init(c config.Config) (*service.Predictor, *service.Loader, error) {
	catalog := service.DefaultCatalog()
	if c.CatalogFile != "" {
		var err error
		catalog, err = service.LoadCatalog(c.CatalogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	slog.Info("Catalog ready", slog.Int("classes", catalog.Len()), slog.Any("labels", catalog.Labels()))

	modelPath := c.ModelPath()
	loader := service.NewLoader(func() (service.Classifier, error) {
		if err := onnx.Init(c.Libonnx, c.ModelDir); err != nil {
			return nil, err
		}
		m, err := service.LoadModel(modelPath, catalog.Len(), service.ModelOptions{
			Sessions:       c.Sessions,
			IntraOpThreads: c.IntraOpThreads,
			DrainTimeout:   c.InferTimeout(),
		})
		if err != nil {
			return nil, err
		}
		slog.Info("ONNX model ready", slog.String("path", modelPath), slog.Int("sessions", c.Sessions))
		return m, nil
	})

	predictor, err := service.NewPredictor(loader, catalog, service.PredictorOptions{
		Timeout:   c.InferTimeout(),
		CacheSize: c.CacheSize,
	})
	if err != nil {
		return nil, nil, err
	}

	if c.LazyLoad {
		slog.Info("Model will load on first prediction", slog.String("path", modelPath))
		return predictor, loader, nil
	}
	if _, err := loader.Get(); err != nil {
		return nil, nil, fmt.Errorf("failed to load model %s: %w", modelPath, err)
	}
	return predictor, loader, nil
}
