package server

import (
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"dw-importer/core/importer"
	"dw-importer/core/logger"
	"dw-importer/core/middleware/auth"
	"dw-importer/core/middleware/rayid"
	"dw-importer/core/storage"
)

// Server serves stored run reports.
type Server struct {
	client storage.Client
	cfg    Config
	report importer.Config
	log    *zap.Logger
}

// New creates a report server reading from the given storage client.
func New(client storage.Client, cfg Config, report importer.Config, log *zap.Logger) *Server {
	if report.ReportBucket == "" {
		report.ReportBucket = "reports"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{client: client, cfg: cfg, report: report, log: log}
}

// App builds the Fiber application with all middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(s.log, c)
		l.Info("request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("request error", zap.Error(err))
		}
		return err
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", auth.New(auth.Config{ApiKey: s.cfg.ApiKey}))
	api.Get("/runs", s.handleList)
	api.Get("/runs/latest", s.handleRun(func(*fiber.Ctx) string {
		return importer.LatestReport
	}))
	api.Get("/runs/:id", s.handleRun(func(c *fiber.Ctx) string {
		return c.Params("id") + ".json"
	}))

	return app
}

// handleList enumerates the stored run reports by ID.
func (s *Server) handleList(c *fiber.Ctx) error {
	prefix := s.report.ReportPrefix
	if prefix != "" {
		prefix += "/"
	}

	runs := []string{}
	for info := range s.client.ListObjects(c.Context(), s.report.ReportBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if info.Err != nil {
			logger.WithRayID(s.log, c).Error("failed to list reports", zap.Error(info.Err))
			return fiber.NewError(fiber.StatusBadGateway, "failed to list reports")
		}
		name := strings.TrimPrefix(info.Key, prefix)
		if name == importer.LatestReport || !strings.HasSuffix(name, ".json") {
			continue
		}
		runs = append(runs, strings.TrimSuffix(name, ".json"))
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// handleRun streams one stored report. The storage client reads lazily,
// so a missing object only surfaces on the first read; that case maps
// to 404 rather than 500.
func (s *Server) handleRun(object func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := path.Join(s.report.ReportPrefix, object(c))

		obj, err := s.client.GetObject(c.Context(), s.report.ReportBucket, name, minio.GetObjectOptions{})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "report storage unavailable")
		}
		defer obj.Close()

		data, err := io.ReadAll(obj)
		if err != nil {
			var resp minio.ErrorResponse
			if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
				return fiber.NewError(fiber.StatusNotFound, "no such run")
			}
			logger.WithRayID(s.log, c).Error("failed to read report",
				zap.String("object", name), zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "failed to read report")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
}
