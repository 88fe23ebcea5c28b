// Package stub is a development backend that speaks the same HTTP contract
// as the real sheet-ingestion service.
//
// Uploads are kept in memory and walked through staged progress so the CLI
// can be exercised end to end without a spreadsheet account. Nothing is
// written anywhere; rows are only counted.
package stub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/justapithecus/sheetdrop/backend"
	"github.com/justapithecus/sheetdrop/log"
	"github.com/justapithecus/sheetdrop/types"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:5000"

// DefaultStepDelay is the pause between processing stages.
const DefaultStepDelay = time.Second

// BodyLimit caps the size of an upload request.
const BodyLimit = "16M"

// Config configures the stub server.
type Config struct {
	// Clients is the client list served by /api/clients (default DefaultClients()).
	Clients types.ClientList
	// StepDelay is the pause between processing stages (default 1s).
	StepDelay time.Duration
	// Logger receives request and job logs (default no-op).
	Logger *log.Logger
}

// Server is an in-memory backend.
type Server struct {
	config Config
	echo   *echo.Echo
	jobs   *jobTable
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a stub server with its routes registered.
func New(cfg Config) *Server {
	if len(cfg.Clients) == 0 {
		cfg.Clients = DefaultClients()
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = DefaultStepDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: cfg,
		echo:   echo.New(),
		jobs:   newJobTable(),
		logger: cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request", map[string]any{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			})
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(BodyLimit))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/clients", s.handleClients)
	api.POST("/upload", s.handleUpload)
	api.GET("/status/:id", s.handleStatus)
	api.GET("/test-client-connection/:id", s.handleTestConnection)
	api.GET("/column-mapping/:id", s.handleColumnMapping)

	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves until Shutdown.
// Returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.logger.Info("stub backend listening", map[string]any{"addr": addr})
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, cancels in-flight jobs and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.echo.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// Close cancels in-flight jobs and waits for them without touching the listener.
// Used when the server is mounted on an external http.Server.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorHandler renders every error as {"error": ...}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	_ = c.JSON(code, errorBody{Error: msg})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, statusBody{Status: "healthy", Message: "Backend is running"})
}

func (s *Server) handleClients(c echo.Context) error {
	return c.JSON(http.StatusOK, types.ClientsResponse{Status: "success", Clients: s.config.Clients})
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "No file part"})
	}
	if fh.Filename == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "No file selected"})
	}

	clientID := c.FormValue("client_id")
	if clientID == "" {
		clientID = s.config.Clients[0].ID
	}
	client, ok := s.config.Clients.Lookup(clientID)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "client not found"})
	}
	if !allowedFile(fh.Filename) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid file type"})
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	id := uuid.NewString()
	name := filepath.Base(fh.Filename)
	s.jobs.set(id, types.StatusProcessing, msgStarted, 0, nil)
	s.logger.Info("upload accepted", map[string]any{
		"processing_id": id,
		"client_id":     client.ID,
		"file":          name,
		"bytes":         len(content),
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(id, client, content)
	}()

	return c.JSON(http.StatusOK, types.SubmitResponse{
		ProcessingID: id,
		Message:      "File uploaded successfully. Processing started.",
		Filename:     name,
		ClientID:     client.ID,
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	resp, ok := s.jobs.get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Error: "File not found"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTestConnection(c echo.Context) error {
	client, ok := s.config.Clients.Lookup(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, statusBody{
			Status:  "error",
			Message: "Unknown client ID: " + c.Param("id"),
		})
	}
	return c.JSON(http.StatusOK, statusBody{
		Status:  "success",
		Message: fmt.Sprintf("Successfully connected to sheet '%s'", client.SheetName),
	})
}

func (s *Server) handleColumnMapping(c echo.Context) error {
	client, ok := s.config.Clients.Lookup(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, statusBody{
			Status:  "error",
			Message: "Unknown client ID: " + c.Param("id"),
		})
	}
	return c.JSON(http.StatusOK, struct {
		Status string                 `json:"status"`
		Data   *backend.ColumnMapping `json:"data"`
	}{Status: "success", Data: columnMapping(client)})
}

// allowedFile accepts names with a .csv extension in any case.
func allowedFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
