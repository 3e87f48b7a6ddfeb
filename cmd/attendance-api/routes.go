package main

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/school-attendance/internal/handler"
	"github.com/noah-isme/school-attendance/internal/middleware"
	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/internal/service"
	"github.com/noah-isme/school-attendance/pkg/config"
)

type routeDeps struct {
	cfg       *config.Config
	sessions  sessions.Store
	tokens    middleware.TokenValidator
	metrics   *service.MetricsService
	account   *handler.AccountHandler
	teachers  *handler.TeacherHandler
	students  *handler.StudentHandler
	timetable *handler.TimetableHandler
	admin     *handler.AdminHandler
	ops       *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/health", d.ops.Health)
	r.GET("/ready", d.ops.Ready)
	r.GET("/metrics", d.ops.Prometheus)
	if !d.cfg.IsProduction() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	app := r.Group("/")
	app.Use(sessions.Sessions(d.cfg.Session.Name, d.sessions))
	app.Use(middleware.Identity(d.tokens))
	app.Use(middleware.Metrics(d.metrics))

	account := app.Group("/account")
	account.GET("/login", d.account.LoginPage)
	account.POST("/login", d.account.Login)
	account.GET("/logout", d.account.Logout)
	account.POST("/logout", d.account.Logout)
	account.POST("/forgot-password", d.account.ForgotPassword)
	account.POST("/reset-code", d.account.VerifyResetCode)
	account.POST("/reset-password", d.account.ResetPassword)

	teachers := app.Group("/teachers", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	teachers.GET("/:id/dashboard", d.teachers.Dashboard)
	teachers.GET("/attendance/:classId", d.teachers.Attendance)
	teachers.POST("/attendance/:classId", d.teachers.SaveAttendance)
	teachers.GET("/attendance/:classId/export", d.teachers.ExportAttendance)

	students := app.Group("/students", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent))
	students.GET("/:id/dashboard", d.students.Dashboard)
	students.GET("/:id/attendance", d.students.Attendance)

	admin := app.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard", d.admin.Dashboard)
	admin.GET("/timetables", d.timetable.List)
	admin.POST("/timetables", d.timetable.Create)
	admin.GET("/timetables/:id", d.timetable.Get)
	admin.PUT("/timetables/:id", d.timetable.Update)
	admin.DELETE("/timetables/:id", d.timetable.Delete)
}
