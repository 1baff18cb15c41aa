package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description shipped alongside the
// binary, as YAML or converted to JSON.
type OpenAPIHandler struct {
	specPath string
	baseDir  string
}

// NewOpenAPIHandler resolves the spec file location up front so later
// reads can be checked against the containing directory.
func NewOpenAPIHandler(specPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(specPath)
	baseDir, _ := filepath.Abs(filepath.Dir(specPath))
	return &OpenAPIHandler{specPath: absPath, baseDir: baseDir}
}

func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// readSpec loads the spec file after confirming the resolved path has
// not escaped the base directory.
func (h *OpenAPIHandler) readSpec() ([]byte, error) {
	absPath, err := filepath.Abs(filepath.Clean(h.specPath))
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(h.baseDir, absPath)
	if err != nil {
		return nil, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, os.ErrPermission
	}
	return os.ReadFile(absPath)
}

func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	data, err := h.readSpec()
	if err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(data); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.readSpec()
	if err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		http.Error(w, "Failed to parse OpenAPI specification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
	}
}
