package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"factsheetgen/internal/domain"
	"factsheetgen/internal/infrastructure/storage"
	"factsheetgen/internal/ports"
	"factsheetgen/internal/task"
	"factsheetgen/internal/usecase"
)

// Server exposes the generation pipeline and the factsheet library over
// HTTP. The dashboard polls task status and renders the markdown.
type Server struct {
	generator *usecase.Generator
	files     ports.FactsheetFiles
	logger    *slog.Logger
}

// New wires the generator and file store into a server.
func New(generator *usecase.Generator, files ports.FactsheetFiles, logger *slog.Logger) *Server {
	return &Server{generator: generator, files: files, logger: logger}
}

// Routes mounts all API handlers.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Post("/tasks/{taskID}/cancel", s.handleTaskCancel)
		r.Get("/factsheets", s.handleList)
		r.Get("/factsheets/{filename}", s.handleRead)
		r.Get("/factsheets/{filename}/download", s.handleDownload)
		r.Delete("/factsheets/{filename}", s.handleDelete)
		r.Get("/health", s.handleHealth)
	})
	return r
}

type generateRequest struct {
	URL   string `json:"url"`
	Model string `json:"model,omitempty"`
}

type generateResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

type failureResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type resultResponse struct {
	MarkdownText    string   `json:"markdown_text"`
	WordCount       int      `json:"word_count"`
	SectionsPresent []string `json:"sections_present"`
	SourceURL       string   `json:"source_url"`
	ModelIdentifier string   `json:"model_identifier"`
	GeneratedAt     string   `json:"generated_at"`
}

type taskResponse struct {
	TaskID    string           `json:"task_id"`
	State     string           `json:"state"`
	Progress  int              `json:"progress_percent"`
	Message   string           `json:"message,omitempty"`
	Result    *resultResponse  `json:"result,omitempty"`
	Error     *failureResponse `json:"error,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	taskID, err := s.generator.Submit(usecase.Request{
		SourceURL:       req.URL,
		ModelIdentifier: req.Model,
	})
	if err != nil {
		var failure *domain.Failure
		if errors.As(err, &failure) && failure.Kind == domain.KindValidation {
			s.writeError(w, http.StatusBadRequest, failure.Message)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "could not start generation")
		return
	}

	s.writeJSON(w, http.StatusAccepted, generateResponse{
		TaskID:  taskID,
		Message: "factsheet generation started",
	})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	t, err := s.generator.Status(chi.URLParam(r, "taskID"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "could not load task")
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.generator.Cancel(chi.URLParam(r, "taskID")); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "could not cancel task")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"message": "cancellation requested"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	metas, err := s.files.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not list factsheets")
		return
	}
	type item struct {
		Filename    string `json:"filename"`
		CompanyName string `json:"company_name"`
		SourceURL   string `json:"url"`
		WordCount   int    `json:"word_count"`
		CreatedAt   string `json:"created_at"`
		SizeBytes   int64  `json:"file_size"`
	}
	items := make([]item, 0, len(metas))
	for _, m := range metas {
		items = append(items, item{
			Filename:    m.Filename,
			CompanyName: m.CompanyName,
			SourceURL:   m.SourceURL,
			WordCount:   m.WordCount,
			CreatedAt:   m.CreatedAt.Format(time.RFC3339),
			SizeBytes:   m.SizeBytes,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"factsheets": items, "total": len(items)})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	meta, content, err := s.files.Read(chi.URLParam(r, "filename"))
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"metadata": map[string]any{
			"filename":     meta.Filename,
			"company_name": meta.CompanyName,
			"url":          meta.SourceURL,
			"word_count":   meta.WordCount,
			"created_at":   meta.CreatedAt.Format(time.RFC3339),
			"file_size":    meta.SizeBytes,
		},
		"content": content,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	meta, content, err := s.files.Read(chi.URLParam(r, "filename"))
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+meta.Filename+`"`)
	_, _ = w.Write([]byte(content))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := s.files.Delete(filename); err != nil {
		s.writeStorageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "factsheet " + filename + " deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"active_tasks": s.generator.ActiveTasks(),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

func toTaskResponse(t domain.Task) taskResponse {
	resp := taskResponse{
		TaskID:    t.ID,
		State:     string(t.State),
		Progress:  t.Progress,
		Message:   t.Message,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
	if t.Result != nil {
		resp.Result = &resultResponse{
			MarkdownText:    t.Result.MarkdownText,
			WordCount:       t.Result.WordCount,
			SectionsPresent: t.Result.SectionsPresent,
			SourceURL:       t.Result.SourceURL,
			ModelIdentifier: t.Result.ModelIdentifier,
			GeneratedAt:     t.Result.GeneratedAt.Format(time.RFC3339),
		}
	}
	if t.Failure != nil {
		resp.Error = &failureResponse{
			Kind:    string(t.Failure.Kind),
			Message: t.Failure.Message,
		}
	}
	return resp
}

func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "factsheet not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, "storage error")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
