package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/api/handler"
	"shiftmate/backend/internal/api/middleware"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/pkg/jwt"
	"shiftmate/backend/pkg/metrics"
	"shiftmate/backend/pkg/redis"
)

// maxBodyBytes JSON 请求体上限
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单检查关闭，限流退化为进程内令牌桶
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// nil 指针不能直接装入接口
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.WindowLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Instrument())
	r.Use(middleware.SecurityHeaders(cfg.Server.BaseURL))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	managers := middleware.RoleAuth(model.RoleManager, model.RoleAdmin)
	superAdmin := middleware.RoleAuth(model.RoleSuperAdmin)
	userAdmins := middleware.RoleAuth(model.RoleManager, model.RoleAdmin, model.RoleSuperAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/password/forgot", h.Auth.ForgotPassword)
			auth.POST("/password/reset", h.Auth.ResetPassword)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 组织模块（超级管理员）
			orgs := authorized.Group("/organizations", superAdmin)
			{
				orgs.POST("", h.Organization.Create)
				orgs.GET("", h.Organization.List)
				orgs.GET("/:id", h.Organization.Get)
				orgs.PUT("/:id", h.Organization.Rename)
				orgs.DELETE("/:id", h.Organization.Delete)
			}

			// 用户模块（角色授予范围在 Service 层校验）
			users := authorized.Group("/users", userAdmins)
			{
				users.POST("", h.User.Create)
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.PUT("/:id/role", h.User.UpdateRole)
				users.DELETE("/:id", h.User.Delete)
			}

			// 班次模块
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("", managers, h.Shift.List)
				shifts.GET("/claimable", h.Shift.ListClaimable)
				shifts.GET("/my", h.Shift.ListMine)
				shifts.GET("/my/calendar.ics", h.Export.Calendar)
				shifts.GET("/export", managers, h.Export.Roster)
				shifts.GET("/:id", h.Shift.Get)
				shifts.POST("", managers, h.Shift.Create)
				shifts.POST("/recurring", managers, h.Shift.CreateRecurring)
				shifts.PUT("/:id", managers, h.Shift.Update)
				shifts.DELETE("/:id", managers, h.Shift.Delete)
				shifts.POST("/:id/take", h.Shift.Take)
				shifts.DELETE("/:id/listing", h.Shift.CancelListing)
			}

			// 换班模块
			swaps := authorized.Group("/swaps")
			{
				swaps.POST("", h.Swap.Initiate)
				swaps.POST("/direct", h.Swap.ProposeDirect)
				swaps.GET("/available", h.Swap.ListAvailable)
				swaps.GET("/received", h.Swap.ListReceived)
				swaps.GET("/sent", h.Swap.ListSent)
				swaps.POST("/:id/accept", h.Swap.Accept)
				swaps.POST("/:id/decline", h.Swap.Decline)
				swaps.DELETE("/:id", h.Swap.Cancel)
			}
		}
	}

	return r
}
