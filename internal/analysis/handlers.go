package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/scanalyze/scanalyze/internal/auth"
)

// maxUploadSize bounds a single label upload. High-resolution phone photos
// need headroom.
const maxUploadSize = int64(50 << 20) // 50MB

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// writeJSON writes a JSON response body with the given status code
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes a {"error": ...} body with the given status code
func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleRegister creates an account and signs the user in
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.auth.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeJSONError(w, http.StatusBadRequest, "User already exists")
			return
		}
		slog.Error("Error registering user", "email", req.Email, "error", err)
		writeJSONError(w, http.StatusBadRequest, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

// handleLogin verifies credentials and signs the user in
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleLogout clears the current session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(); err != nil {
		slog.Error("Error clearing session", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSession returns the current session state
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Current())
}

// handleSubmitScan accepts a label upload and runs the scan pipeline
func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, http.StatusBadRequest, errorMsg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeJSONError(w, http.StatusBadRequest, errorMsg)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromFilename(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	a, err := s.pipeline.Submit(r.Context(), header.Filename, data, contentType)
	if err != nil {
		if errors.Is(err, ErrScanInProgress) || errors.Is(err, ErrResetRequired) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		// The user-facing message is whatever the pipeline settled on;
		// the wrapped cause has already been logged.
		message := s.pipeline.Snapshot().Message
		if message == "" {
			message = "Scan failed. Please try again."
		}
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// handleScanStatus returns a snapshot of the pipeline state
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Snapshot())
}

// handleResetScan returns the pipeline to Idle
func (s *Server) handleResetScan(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Reset()
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleListHistory returns all analyses, newest first
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.All())
}

// handleGetAnalysis returns a single prior analysis
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Analysis ID required", http.StatusBadRequest)
		return
	}
	a, err := s.history.Select(id)
	if err != nil {
		corsError(w, "Analysis not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleGetAnalysisImage returns the stored raw upload for an analysis
func (s *Server) handleGetAnalysisImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Analysis ID required", http.StatusBadRequest)
		return
	}
	a, err := s.history.Select(id)
	if err != nil {
		corsError(w, "Analysis not found", http.StatusNotFound)
		return
	}
	data, err := s.storage.Get(a.Filename)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

// contentTypeFromFilename maps common label photo extensions to MIME types
func contentTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
