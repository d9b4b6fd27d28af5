// Package api serves GGUF header validation over HTTP.
package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ggufcheck/internal/gguf"
	"github.com/samcharles93/ggufcheck/internal/logger"
)

// Options configures a Server.
type Options struct {
	Limits    gguf.Limits
	ModelsDir string
	Logger    logger.Logger
}

type Server struct {
	validator gguf.Validator
	modelsDir string
	log       logger.Logger
	clock     func() time.Time
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		validator: gguf.Validator{Limits: opts.Limits.WithDefaults()},
		modelsDir: strings.TrimSpace(opts.ModelsDir),
		log:       log,
		clock:     time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/limits", s.handleLimits)
	e.POST("/v1/validate", s.handleValidate)
	e.GET("/v1/models", s.handleListModels)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLimits(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.validator.Limits)
}

// handleValidate treats the request body, or the "file" part of a multipart
// upload, as the file stream. Only the header is read; the rest of the
// upload is left unread.
func (s *Server) handleValidate(c *echo.Context) error {
	body, err := uploadStream(c.Request())
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	h, err := s.validator.Validate(body)
	resp := s.newValidationResponse(gguf.NewReport("", h, err))

	if err != nil {
		s.log.Info("header rejected", "id", resp.ID, "kind", string(resp.Error.Kind), "error", err)
		if resp.Error.Kind == gguf.KindIO {
			return c.JSON(http.StatusBadRequest, resp)
		}
		return c.JSON(http.StatusUnprocessableEntity, resp)
	}
	s.log.Info("header valid", "id", resp.ID, "endianness", h.Endianness.String(),
		"tensors", h.TensorCount, "kv", h.KVCount)
	return c.JSON(http.StatusOK, resp)
}

// handleListModels validates every .gguf file in the models directory. Each
// file is an independent validation; one bad file does not fail the listing.
func (s *Server) handleListModels(c *echo.Context) error {
	if s.modelsDir == "" {
		return writeNotFound(c, "no models directory configured")
	}
	paths, err := gguf.DiscoverFiles(s.modelsDir)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	results := s.validator.ValidateFiles(c.Request().Context(), paths)
	data := make([]ValidationResponse, 0, len(results))
	for _, res := range results {
		name, relErr := filepath.Rel(s.modelsDir, res.Path)
		if relErr != nil {
			name = filepath.Base(res.Path)
		}
		data = append(data, s.newValidationResponse(gguf.NewReport(name, res.Header, res.Err)))
	}
	s.log.Debug("listed models", "dir", s.modelsDir, "count", len(data))
	return c.JSON(http.StatusOK, ListResponse{Object: "list", Data: data})
}

func (s *Server) newValidationResponse(rep gguf.Report) ValidationResponse {
	return ValidationResponse{
		ID:        newValidationID(),
		Object:    "gguf.header",
		CreatedAt: s.clock().Unix(),
		Report:    rep,
	}
}

func uploadStream(req *http.Request) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != "multipart/form-data" {
		return req.Body, nil
	}
	mr, err := req.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errors.New(`multipart upload has no "file" part`)
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
	}
}
