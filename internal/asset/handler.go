package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/inamate/sculpt/internal/typeid"
)

const maxUploadSize = 32 << 20 // 32MB

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Kind   string `json:"kind"` // "texture" or "model"
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// modelExts are the mesh formats accepted as-is; the importer runs client
// side.
var modelExts = map[string]bool{
	".glb":  true,
	".gltf": true,
	".obj":  true,
	".stl":  true,
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	store *Store
}

// NewHandler creates a new asset handler backed by store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 32MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")

	var resp *UploadResponse
	switch {
	case strings.HasPrefix(contentType, "image/png"), strings.HasPrefix(contentType, "image/jpeg"):
		resp, err = h.saveTexture(file)
	case modelExts[ext]:
		resp, err = h.saveModel(file, ext)
	default:
		http.Error(w, "only PNG/JPEG textures and glb, gltf, obj or stl models are supported", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("save asset", "error", err, "name", header.Filename)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp.Name = header.Filename

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// saveTexture decodes the image (JPEG is re-encoded as PNG) and stores it.
func (h *Handler) saveTexture(src io.Reader) (*UploadResponse, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	out, err := os.Create(h.store.Path(filename))
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		os.Remove(h.store.Path(filename))
		return nil, fmt.Errorf("encode png: %w", err)
	}

	bounds := img.Bounds()
	return &UploadResponse{
		ID:     assetID,
		URL:    URLPrefix + filename,
		Kind:   "texture",
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "png",
	}, nil
}

func (h *Handler) saveModel(src io.Reader, ext string) (*UploadResponse, error) {
	assetID := typeid.NewAssetID()
	filename := assetID + ext
	if err := copyFile(h.store.Path(filename), src); err != nil {
		os.Remove(h.store.Path(filename))
		return nil, fmt.Errorf("save model: %w", err)
	}
	return &UploadResponse{
		ID:   assetID,
		URL:  URLPrefix + filename,
		Kind: "model",
		Type: strings.TrimPrefix(ext, "."),
	}, nil
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.store.Dir()))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// copyFile copies src reader to a file at dst path.
func copyFile(dst string, src io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}
