package bulkimport

import (
	"github.com/samSKIF/ThrivioHR-sub000/internal/config"
	"github.com/samSKIF/ThrivioHR-sub000/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ImportApi struct {
	ImportController *ImportController
	Config           *config.Config
}

func NewImportApi(importController *ImportController, config *config.Config) *ImportApi {
	return &ImportApi{
		ImportController: importController,
		Config:           config,
	}
}

func (api *ImportApi) Setup(app *fiber.App) {
	group := app.Group("/api/import", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Post("/validate", api.ImportController.Validate)
	group.Post("/plan", api.ImportController.Plan)
	group.Post("/commit-plan", api.ImportController.CommitPlan)
	group.Post("/sessions", api.ImportController.CreateSession)
	group.Post("/sessions/preview", api.ImportController.PreviewSession)
	group.Post("/sessions/apply", api.ImportController.ApplySession)
	group.Get("/audits", api.ImportController.ListAudits)
	group.Get("/audits/:id", api.ImportController.GetAudit)

	group.Use("/progress/:runId", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	group.Get("/progress/:runId", websocket.New(api.ImportController.HandleProgress))
}
