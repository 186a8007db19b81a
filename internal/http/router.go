package http

import (
	"log/slog"

	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// UserService is everything the router needs from the user service.
type UserService interface {
	handlers.UserService
	handlers.Authenticator
}

// Tokens mints and checks JWTs.
type Tokens interface {
	middlewares.TokenVerifier
	handlers.TokenIssuer
}

type Deps struct {
	Log     *slog.Logger
	Config  config.Config
	Tasks   handlers.TaskService
	Users   UserService
	Avatars handlers.AvatarUploader
	Tokens  Tokens
	// Revoked holds spent refresh token ids.
	Revoked cache.Store
	Prom    *observability.Prom
	Metrics prometheus.Gatherer
	// AvatarDir is served under /avatars when avatars live on local disk.
	AvatarDir string
	Checks    map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Revoked == nil {
		d.Revoked = cache.NewMemory(0)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health + ops
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)
	if d.AvatarDir != "" {
		r.Static("/avatars", d.AvatarDir)
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	byIP, byUser := rateLimits(d.Config)
	requireJSON := middlewares.RequireJSON()
	bodyLimit := middlewares.MaxBodyBytes(maxJSONBody)
	writers := authMW.RequireRoles(user.RoleAdmin, user.RoleLeader)

	tasksHandler := handlers.NewTasksHandler(d.Tasks)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Avatars)
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Revoked, d.Config.Env == "prod", d.Log)

	// public
	public := r.Group("/", byIP)
	public.POST("/auth/login", requireJSON, bodyLimit, authHandler.Login)
	public.POST("/auth/refresh", authHandler.Refresh)
	public.POST("/auth/logout", authHandler.Logout)
	public.POST("/users", requireJSON, bodyLimit, usersHandler.CreateUser)

	// tasks: reads for every role, writes for ADMIN and LEADER
	tasks := r.Group("/tasks", authMW.RequireAuth(), byUser)
	tasks.GET("/All", tasksHandler.ListTasks)
	tasks.GET("/:id", tasksHandler.GetTask)
	tasks.POST("", writers, requireJSON, bodyLimit, tasksHandler.CreateTask)
	tasks.PATCH("/:id", writers, requireJSON, bodyLimit, tasksHandler.UpdateTask)
	tasks.DELETE("/:id", writers, tasksHandler.DeleteTask)

	// users; profiles expose email and tasks, so even reads are authenticated
	users := r.Group("/users", authMW.RequireAuth(), byUser)
	users.GET("/:id", usersHandler.GetUser)
	users.PATCH("/:id", requireJSON, bodyLimit, usersHandler.UpdateUser)
	users.DELETE("/:id", usersHandler.DeleteUser)
	users.POST("/upload", middlewares.RequireMultipart(), usersHandler.UploadAvatar)

	return r
}

// rateLimits builds the per-IP and per-user limiters. A non-positive rate
// disables limiting.
func rateLimits(cfg config.Config) (byIP, byUser gin.HandlerFunc) {
	if cfg.RateLimitRPS <= 0 {
		pass := func(c *gin.Context) { c.Next() }
		return pass, pass
	}

	ipLimiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	userLimiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	return ipLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
		userLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)
}
