package api

import (
	"log/slog"
	stdhttp "net/http"
	"net/url"

	intconfig "hkiapp/internal/config"
	h "hkiapp/internal/http/handlers"
	"hkiapp/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env, a *h.API, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(a.OriginPatterns) == 0 {
		a.OriginPatterns = OriginPatterns(env.HTTP.AllowedOrigins)
	}

	h.RegisterValidators()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(logger), gin.Recovery(), middleware.CORS(env.HTTP.AllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Warn("failed to set trusted proxies", "error", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route tidak ditemukan",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	auth := middleware.AuthRequired(a.Secret)
	admin := middleware.RequireRoles("admin")
	loginLimit := middleware.NewRateLimiter(env.Auth.LoginRatePerMinute)

	api := r.Group("/api")
	{
		api.GET("/health", a.Health)
		api.GET("/routes", auth, admin, h.Routes)

		api.POST("/auth/login", loginLimit.Middleware(), a.Login)
		api.GET("/auth/me", auth, a.Me)

		// signed token in the query string is the credential
		api.GET("/files/*path", a.ServeFile)

		hki := api.Group("/hki", auth)
		hki.GET("/changes", a.Changes)
		hki.GET("/:id/signed-url", a.SignedURL)
		{
			adm := hki.Group("", admin)
			adm.GET("", a.ListHKI)
			adm.POST("", a.CreateHKI)
			adm.GET("/export", a.ExportHKI)
			adm.POST("/bulk-delete", a.BulkDeleteHKI)
			adm.GET("/:id", a.GetHKI)
			adm.PATCH("/:id", a.UpdateHKI)
			adm.DELETE("/:id", a.DeleteHKI)
			adm.PATCH("/:id/status", a.UpdateHKIStatus)
		}

		api.GET("/options", auth, a.Options)
		api.GET("/stats", auth, a.Stats)
		api.GET("/reports/summary.pdf", auth, admin, a.SummaryReport)

		master := api.Group("/master/:table", auth, admin)
		master.GET("", a.ListMaster)
		master.POST("", a.CreateMaster)
		master.PATCH("/:id", a.UpdateMaster)
		master.DELETE("/:id", a.DeleteMaster)

		users := api.Group("/users", auth)
		users.PATCH("/profile", a.UpdateProfile)
		users.GET("", admin, a.GetUsers)
		users.POST("", admin, a.CreateUser)
		users.PATCH("/:id", admin, a.UpdateUser)
		users.DELETE("/:id", admin, a.DeleteUser)
	}

	h.SetRouter(r)
	return r
}

// OriginPatterns turns CORS origins into the host patterns the websocket
// handshake checks.
func OriginPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			out = append(out, o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
