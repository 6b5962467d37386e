// Package handlers implements the HTTP endpoints of the exify service.
package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jrm-1535/exify"
	apierrors "github.com/jrm-1535/exify/internal/api/errors"
	"github.com/jrm-1535/exify/internal/service"
)

// Inspector is the service behind the metadata endpoints.
type Inspector interface {
	Info(rel string) (exify.Info, error)
	Thumbnail(rel string) ([]byte, error)
}

// MetadataHandler serves /api/v1/info and /api/v1/thumbnail.
type MetadataHandler struct {
	inspector Inspector
	logger    *slog.Logger
}

// NewMetadataHandler returns a handler using the given inspector.
func NewMetadataHandler(inspector Inspector, logger *slog.Logger) *MetadataHandler {
	return &MetadataHandler{
		inspector: inspector,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// GetInfo writes the metadata of the file named by the path query parameter
// as a JSON object whose keys keep the display order.
func (h *MetadataHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		apierrors.ValidationError(w, "missing path parameter")
		return
	}
	info, err := h.inspector.Info(rel)
	if err != nil {
		h.writeServiceError(w, rel, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetThumbnail writes the EXIF thumbnail of the file named by the path query
// parameter.
func (h *MetadataHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		apierrors.ValidationError(w, "missing path parameter")
		return
	}
	thumb, err := h.inspector.Thumbnail(rel)
	if err != nil {
		h.writeServiceError(w, rel, err)
		return
	}
	if thumb == nil {
		apierrors.NotFound(w, "no thumbnail in "+rel)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(thumb); err != nil {
		h.logger.Debug("thumbnail write failed", slog.String("error", err.Error()))
	}
}

// writeServiceError maps a service error to a response. Messages name the
// file by rel only; errors carry the location below the root.
func (h *MetadataHandler) writeServiceError(w http.ResponseWriter, rel string, err error) {
	var (
		de *exify.DecodeError
		be *exify.BoundsError
	)
	switch {
	case errors.Is(err, service.ErrOutsideRoot):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		apierrors.NotFound(w, "no such file: "+rel)
	case errors.As(err, &de):
		apierrors.DecodeError(w, rel+" is not a readable JPEG file")
	case errors.As(err, &be):
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.CodeThumbnailOutOfBounds,
			"thumbnail of "+rel+" exceeds its EXIF segment")
	default:
		h.logger.Error("unexpected error", slog.String("error", err.Error()))
		apierrors.InternalError(w, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
