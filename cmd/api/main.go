package main

import (
	"context"
	"fmt"
	"log"

	common_api "github.com/samSKIF/ThrivioHR-sub000/internal/common/api"
	"github.com/samSKIF/ThrivioHR-sub000/internal/config"
	"github.com/samSKIF/ThrivioHR-sub000/internal/database"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/bulkimport"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/janitor"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/system"
	"github.com/samSKIF/ThrivioHR-sub000/internal/logger"
	"github.com/samSKIF/ThrivioHR-sub000/internal/middleware"
	"github.com/samSKIF/ThrivioHR-sub000/pkg/utils"

	_ "github.com/samSKIF/ThrivioHR-sub000/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
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

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// ConfigureAuth injects the JWT secret from config
func ConfigureAuth(cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)
}

func main() {
	app := fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),

		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			database.NewPostgres,
			logger.NewLogger,
			NewFiberServer,

			directory.NewDirectoryRepository,

			bulkimport.NewProgressHub,
			bulkimport.NewImportAuditRepository,
			bulkimport.NewImportService,
			bulkimport.NewImportController,

			janitor.NewJanitorService,

			AsRoute(bulkimport.NewImportApi),
			fx.Annotate(system.NewSwaggerApi, fx.ResultTags(`group:"routes"`)),
			fx.Annotate(system.NewHealthApi, fx.ResultTags(`group:"routes"`)),
		),

		fx.Invoke(
			ConfigureAuth,
			RegisterAllRoutesWithAnnotation,
			func(*janitor.JanitorService) {},
			StartServer,
		),
	)

	app.Run()
}
