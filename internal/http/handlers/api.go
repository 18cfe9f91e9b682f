package handlers

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/http/middleware"
	"hkiapp/internal/realtime"
	"hkiapp/internal/repositories"
	"hkiapp/internal/services"
	"hkiapp/internal/storage"
)

// API carries the shared dependencies of every handler. Services are cheap
// values and are built per request so they carry its request id.
type API struct {
	DB    *sql.DB
	Files storage.ObjectStore
	// FileSystem is set only for the filesystem backend; it verifies the
	// tokens of /api/files links.
	FileSystem *storage.FileSystem
	Hub        *realtime.Hub
	Events     realtime.Publisher

	Secret         []byte
	TokenTTL       time.Duration
	SignedURLTTL   time.Duration
	MaxUploadBytes int64
	OriginPatterns []string

	Logger *slog.Logger
	Now    func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) events() realtime.Publisher {
	if a.Events != nil {
		return a.Events
	}
	if a.Hub != nil {
		return a.Hub
	}
	return realtime.Nop{}
}

func (a *API) hkiService(c *gin.Context) services.HKIService {
	return services.HKIService{
		Records:        repositories.HKIRepository{DB: a.DB},
		Pemohon:        repositories.PemohonRepository{DB: a.DB},
		Files:          a.Files,
		Events:         a.events(),
		SignedURLTTL:   a.SignedURLTTL,
		MaxUploadBytes: a.MaxUploadBytes,
		RequestID:      middleware.GetRequestID(c),
	}
}

func (a *API) authService(c *gin.Context) services.AuthService {
	return services.AuthService{
		Users:     repositories.UserRepository{DB: a.DB},
		Secret:    a.Secret,
		TokenTTL:  a.TokenTTL,
		RequestID: middleware.GetRequestID(c),
	}
}

func (a *API) userService(c *gin.Context) services.UserService {
	return services.UserService{
		Users:     repositories.UserRepository{DB: a.DB},
		RequestID: middleware.GetRequestID(c),
	}
}

func (a *API) masterService(c *gin.Context) services.MasterService {
	return services.MasterService{
		Master:    repositories.MasterRepository{DB: a.DB},
		Years:     repositories.HKIRepository{DB: a.DB},
		Events:    a.events(),
		RequestID: middleware.GetRequestID(c),
	}
}

func (a *API) statsService(c *gin.Context) services.StatsService {
	return services.StatsService{
		Stats:     repositories.StatsRepository{DB: a.DB},
		Records:   repositories.HKIRepository{DB: a.DB},
		RequestID: middleware.GetRequestID(c),
	}
}

func (a *API) exportService(c *gin.Context) services.ExportService {
	return services.ExportService{
		Records:   repositories.HKIRepository{DB: a.DB},
		Now:       a.now,
		RequestID: middleware.GetRequestID(c),
	}
}
