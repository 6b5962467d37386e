package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrm-1535/exify"
	"github.com/jrm-1535/exify/internal/service"
)

type fakeInspector struct {
	info  exify.Info
	thumb []byte
	err   error
	rel   string
}

func (f *fakeInspector) Info(rel string) (exify.Info, error) {
	f.rel = rel
	return f.info, f.err
}

func (f *fakeInspector) Thumbnail(rel string) ([]byte, error) {
	f.rel = rel
	return f.thumb, f.err
}

func newTestHandler(f *fakeInspector) *MetadataHandler {
	return NewMetadataHandler(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("error body: %v", err)
	}
	return resp
}

// servedRoot stands for the directory the service reads from; it must never
// reach a client.
const servedRoot = "/srv/photos"

func rootedDecodeError(rel string, err error) error {
	path := servedRoot + "/" + rel
	return &exify.DecodeError{Path: path, Err: fmt.Errorf("Read: unable to read file %s: %w", path, err)}
}

func TestGetInfo(t *testing.T) {
	f := &fakeInspector{info: exify.Info{
		{Label: "File Name", Value: "a.jpg"},
		{Label: "Width", Value: "640"},
		{Label: "Color/B&W", Value: "Black and White"},
	}}
	h := newTestHandler(f)

	rec := httptest.NewRecorder()
	h.GetInfo(rec, httptest.NewRequest(http.MethodGet, "/api/v1/info?path=dir/a.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.rel != "dir/a.jpg" {
		t.Errorf("inspector got %q", f.rel)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := strings.TrimSpace(rec.Body.String())
	if !strings.HasPrefix(body, `{"File Name":"a.jpg","Width":"640"`) {
		t.Errorf("body = %s", body)
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(body), &m); err != nil || m["Color/B&W"] != "Black and White" {
		t.Errorf("body = %s (%v)", body, err)
	}
}

func TestGetInfo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"missing path", "", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"outside root", "?path=../x.jpg", service.ErrOutsideRoot, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"decode", "?path=x.jpg", rootedDecodeError("x.jpg", errors.New("Parse: not a JPEG file")),
			http.StatusUnprocessableEntity, "DECODE_ERROR"},
		{"missing file", "?path=x.jpg", rootedDecodeError("x.jpg", fs.ErrNotExist),
			http.StatusNotFound, "NOT_FOUND"},
		{"unexpected", "?path=x.jpg", errors.New("boom " + servedRoot), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeInspector{err: tt.err})
			rec := httptest.NewRecorder()
			h.GetInfo(rec, httptest.NewRequest(http.MethodGet, "/api/v1/info"+tt.query, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if strings.Contains(rec.Body.String(), servedRoot) {
				t.Errorf("body reveals the served root: %s", rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestGetThumbnail(t *testing.T) {
	thumb := []byte{0xff, 0xd8, 0xff, 0xd9}
	h := newTestHandler(&fakeInspector{thumb: thumb})
	rec := httptest.NewRecorder()
	h.GetThumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/thumbnail?path=a.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("Content-Length") != "4" || rec.Body.String() != string(thumb) {
		t.Errorf("body = % x", rec.Body.Bytes())
	}
}

func TestGetThumbnail_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"missing path", "", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no thumbnail", "?path=a.jpg", nil, http.StatusNotFound, "NOT_FOUND"},
		{"decode", "?path=a.jpg", rootedDecodeError("a.jpg", errors.New("x")),
			http.StatusUnprocessableEntity, "DECODE_ERROR"},
		{"missing file", "?path=a.jpg", rootedDecodeError("a.jpg", fs.ErrNotExist),
			http.StatusNotFound, "NOT_FOUND"},
		{"bounds", "?path=a.jpg", &exify.BoundsError{Offset: 100, Size: 1000, Len: 200},
			http.StatusInternalServerError, "THUMBNAIL_OUT_OF_BOUNDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeInspector{err: tt.err})
			rec := httptest.NewRecorder()
			h.GetThumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/thumbnail"+tt.query, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if strings.Contains(rec.Body.String(), servedRoot) {
				t.Errorf("body reveals the served root: %s", rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Service != "exify" || resp.Version == "" || resp.Timestamp == "" {
		t.Errorf("response = %+v", resp)
	}
}
