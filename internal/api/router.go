package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"

	"family-doctor/docs"
	"family-doctor/internal/api/handlers"
	"family-doctor/pkg/config"
	"family-doctor/pkg/middleware"
)

func SetupRouter(
	diagnosisHandler *handlers.DiagnosisHandler,
	reviewHandler *handlers.ReviewHandler,
	adminHandler *handlers.AdminHandler,
	serverCfg *config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
	}))
	app.Use(middleware.RequestLogger(appLogger))

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	api.Post("/diagnoses", diagnosisHandler.Diagnose)
	api.Post("/intent", diagnosisHandler.ClassifyIntent)

	reviews := api.Group("/reviews")
	reviews.Get("/:fingerprint", reviewHandler.Status)
	reviews.Post("/:fingerprint/approve", reviewHandler.Approve)
	reviews.Patch("/:fingerprint/edit", reviewHandler.Edit)

	kb := api.Group("/knowledge-base")
	kb.Get("/entries", adminHandler.ListKnowledge)
	kb.Get("/entries/:id", adminHandler.GetEntry)
	kb.Get("/doctors/:doctorId/entries", adminHandler.ListDoctorEntries)
	kb.Post("/search", adminHandler.SearchKnowledge)

	admin := api.Group("/admin")
	admin.Get("/stats", adminHandler.Stats)
	admin.Delete("/cache", adminHandler.ResetAll)
	admin.Delete("/cache/exact", adminHandler.ClearExact)
	admin.Delete("/cache/semantic", adminHandler.ClearSemantic)
	admin.Post("/cache/semantic/rebuild", adminHandler.RebuildSemantic)

	return app
}
