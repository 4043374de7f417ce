package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sunu-agro/leafscan/service"
)

const ReadyMessage = "API IA Sunu Agro opérationnelle 🌱"

type Handler struct {
	predictor *service.Predictor
	maxUpload int64
}

func NewHandler(p *service.Predictor, maxUpload int64) *Handler {
	return &Handler{predictor: p, maxUpload: maxUpload}
}

func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": ReadyMessage})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "model_loaded": h.predictor.Ready()})
}

func (h *Handler) Predict(c *gin.Context) {
	data, err := h.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.predictor.Predict(c.Request.Context(), data)
	if err != nil {
		writeError(c, err)
		return
	}

	slog.Debug("Prediction",
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("label", resp.Label),
		slog.Float64("confidence", resp.Confidence))
	c.JSON(http.StatusOK, resp)
}

// readUpload returns the bytes of the single uploaded file. The field named
// "file" wins; otherwise the first file of the lexically first field is used.
func (h *Handler) readUpload(c *gin.Context) ([]byte, error) {
	if h.maxUpload > 0 {
		if c.Request.ContentLength > h.maxUpload {
			return nil, tooLarge(h.maxUpload)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, tooLarge(h.maxUpload)
		}
		return nil, service.ErrNoFile
	}

	fh := pickFile(form)
	if fh == nil {
		return nil, service.ErrNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return data, nil
}

func pickFile(form *multipart.Form) *multipart.FileHeader {
	if files := form.File["file"]; len(files) > 0 {
		return files[0]
	}
	fields := make([]string, 0, len(form.File))
	for k := range form.File {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		if files := form.File[k]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func tooLarge(limit int64) error {
	return service.TooLarge(fmt.Errorf("Fichier trop volumineux (limite %d octets)", limit))
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		// Undecodable uploads stay 500 for compatibility with existing clients.
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := statusFor(kind)
	attrs := []any{
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("kind", kind.String()),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Prediction failed", attrs...)
	} else {
		slog.Warn("Prediction rejected", attrs...)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}
