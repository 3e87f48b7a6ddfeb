package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-attendance/api/swagger"
	"github.com/noah-isme/school-attendance/internal/handler"
	"github.com/noah-isme/school-attendance/internal/repository"
	"github.com/noah-isme/school-attendance/internal/service"
	"github.com/noah-isme/school-attendance/pkg/cache"
	"github.com/noah-isme/school-attendance/pkg/clock"
	"github.com/noah-isme/school-attendance/pkg/config"
	"github.com/noah-isme/school-attendance/pkg/database"
	"github.com/noah-isme/school-attendance/pkg/export"
	"github.com/noah-isme/school-attendance/pkg/logger"
	"github.com/noah-isme/school-attendance/pkg/mailer"
	"github.com/noah-isme/school-attendance/pkg/session"
	corsmiddleware "github.com/noah-isme/school-attendance/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-attendance/pkg/middleware/requestid"
)

// @title School Attendance API
// @version 1.0.0
// @description Timetable-driven daily attendance for teachers, students and administrators
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if needsRedis(cfg) {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	app := buildApp(cfg, logr, db, redisClient)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *gin.Engine {
	clk := clock.System()
	metrics := service.NewMetricsService()

	validate := validator.New()
	service.RegisterTimetableRules(validate)

	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled && redisClient != nil)
	scheduleSvc := service.NewScheduleService(timetableRepo, cacheSvc, clk, metrics, logr, cfg.Timetable.CacheTTL)
	timetableSvc := service.NewTimetableService(timetableRepo, validate, cacheSvc, logr)
	rosterSvc := service.NewRosterService(attendanceRepo, enrollmentRepo, classRepo, clk, metrics, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, clk, metrics, logr)
	codeSvc := service.NewResetCodeService(clk, cfg.Reset.CodeTTL, metrics, logr)
	authSvc := service.NewAuthService(teacherRepo, studentRepo, scheduleSvc, codeSvc, accessTokenStore(cfg, redisClient, clk, logr), mailer.New(cfg.Mail, logr), clk, metrics, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "school-attendance",
		ExposeResetCode:   !cfg.IsProduction(),
	})
	teacherSvc := service.NewTeacherService(teacherRepo, scheduleSvc)
	studentSvc := service.NewStudentService(studentRepo, attendanceRepo)
	exportSvc := service.NewExportService(rosterSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	adminSvc := service.NewAdminService(repository.NewOverviewRepository(db))

	store, err := session.NewStore(cfg.Session, cfg.Redis)
	if err != nil {
		logr.Warn("redis session store unavailable, using memory", zap.Error(err))
		fallback := cfg.Session
		fallback.Store = config.SessionStoreMemory
		store, _ = session.NewStore(fallback, cfg.Redis)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	ops := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db, 2*time.Second) },
		"cache": func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return cacheRepo.Ping(ctx)
		},
	})

	registerRoutes(r, routeDeps{
		cfg:       cfg,
		sessions:  store,
		tokens:    authSvc,
		metrics:   metrics,
		account:   handler.NewAccountHandler(authSvc, resetStoreResolver(cfg, redisClient, logr), logr),
		teachers:  handler.NewTeacherHandler(teacherSvc, rosterSvc, attendanceSvc, exportSvc, logr),
		students:  handler.NewStudentHandler(studentSvc),
		timetable: handler.NewTimetableHandler(timetableSvc),
		admin:     handler.NewAdminHandler(adminSvc),
		ops:       ops,
	})
	return r
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Timetable.CacheEnabled ||
		cfg.Session.Store == config.SessionStoreRedis ||
		(cfg.Reset.Scope == config.ResetScopeGlobal && cfg.Reset.Store == config.ResetStoreRedis)
}

// accessTokenStore keeps live bearer token ids next to the sessions so a
// logout is honoured by every instance sharing them.
func accessTokenStore(cfg *config.Config, redisClient *redis.Client, clk clock.Clock, logr *zap.Logger) service.AccessTokenStore {
	if cfg.Session.Store == config.SessionStoreRedis {
		if redisClient != nil {
			return repository.NewRedisAccessTokenStore(redisClient)
		}
		logr.Warn("redis access token store requested but redis is unavailable, using memory")
	}
	return repository.NewMemoryAccessTokenStore(clk)
}

// resetStoreResolver picks the reset code ledger. Session scope binds codes to
// the requesting browser; global scope shares one ledger across the process.
func resetStoreResolver(cfg *config.Config, redisClient *redis.Client, logr *zap.Logger) handler.ResetStoreResolver {
	if cfg.Reset.Scope != config.ResetScopeGlobal {
		return handler.SessionResetStore
	}
	if cfg.Reset.Store == config.ResetStoreRedis {
		if redisClient != nil {
			return handler.SharedResetStore(repository.NewRedisResetCodeStore(redisClient))
		}
		logr.Warn("redis reset code store requested but redis is unavailable, using memory")
	}
	return handler.SharedResetStore(repository.NewMemoryResetCodeStore())
}
