package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/config"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/services"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Health      *handlers.HealthHandler
	Tasks       *handlers.TaskHandler
	Collections *handlers.CollectionHandler
	Labels      *handlers.LabelHandler
}

// NewHandlers wires services and handlers over db.
func NewHandlers(cfg *config.Config, db *gorm.DB) Handlers {
	return Handlers{
		Auth:        handlers.NewAuthHandler(services.NewAuthService(db, cfg), cfg),
		Health:      handlers.NewHealthHandler(db),
		Tasks:       handlers.NewTaskHandler(services.NewTaskService(db)),
		Collections: handlers.NewCollectionHandler(services.NewCollectionService(db)),
		Labels:      handlers.NewLabelHandler(services.NewLabelService(db)),
	}
}

// NewApp returns a Fiber app with the global middleware and every route
// mounted. Callers may Use additional middleware before serving.
func NewApp(cfg *config.Config, db *gorm.DB, pre ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: middleware.ErrorHandler,
	})
	for _, h := range pre {
		app.Use(h)
	}
	Setup(app, cfg, NewHandlers(cfg, db))
	return app
}

func rateLimit(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())
	app.Use(rateLimit(cfg.RateLimit))

	app.Get("/health", h.Health.Check)

	// signup and login are public and get a stricter rate limit
	auth := app.Group("/auth")
	auth.Post("/signup", rateLimit(cfg.AuthRateLimit), h.Auth.Signup)
	auth.Post("/login", rateLimit(cfg.AuthRateLimit), h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)

	protected := middleware.JWTProtected(cfg)
	auth.Get("/me", protected, h.Auth.Me)
	auth.Put("/me/onboarding", protected, h.Auth.CompleteOnboarding)

	tasks := app.Group("/tasks", protected)
	tasks.Get("/", h.Tasks.List)
	tasks.Post("/", h.Tasks.Create)
	tasks.Get("/insights", h.Tasks.Insights)
	tasks.Get("/:id", h.Tasks.Get)
	tasks.Put("/:id", h.Tasks.Update)
	tasks.Delete("/:id", h.Tasks.Delete)

	collections := app.Group("/collections", protected)
	collections.Get("/", h.Collections.List)
	collections.Post("/", h.Collections.Create)
	collections.Get("/:id", h.Collections.Get)
	collections.Put("/:id", h.Collections.Update)
	collections.Delete("/:id", h.Collections.Delete)

	labels := app.Group("/labels", protected)
	labels.Get("/", h.Labels.List)
	labels.Post("/", h.Labels.Create)
	labels.Get("/:id", h.Labels.Get)
	labels.Put("/:id", h.Labels.Update)
	labels.Delete("/:id", h.Labels.Delete)
}
