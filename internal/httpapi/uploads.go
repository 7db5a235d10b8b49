package httpapi

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var allowedExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file selected"})
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Invalid file type. Please upload JPG, JPEG, or PNG files only",
		})
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.logger.Error("upload dir unavailable", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "upload storage unavailable"})
		return
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, name))
	if err != nil {
		s.logger.Error("upload create failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not store file"})
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		s.logger.Error("upload write failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not store file"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"filename": name,
		"message":  "File uploaded successfully",
	})
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	// Base strips any traversal components from the route variable.
	name := filepath.Base(mux.Vars(r)["filename"])
	http.ServeFile(w, r, filepath.Join(s.cfg.UploadDir, name))
}
