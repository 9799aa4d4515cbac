package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/describly/feature-board-backend/api"
	"github.com/describly/feature-board-backend/internal/platform/config"
	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/platform/health"
	"github.com/describly/feature-board-backend/internal/platform/shutdown"
	"github.com/describly/feature-board-backend/internal/platform/startup"
	"github.com/describly/feature-board-backend/internal/vote"
	"github.com/describly/feature-board-backend/pkg/lifecycle"
	"github.com/describly/feature-board-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env用于本地开发时覆盖配置，缺失不算错误
	if err := godotenv.Load(); err != nil {
		fmt.Println("未找到.env文件，使用系统环境变量。")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	token.InitializeSecretKey(cfg.Identity.Secret)
	vote.SetIPDailyLimit(cfg.Vote.IPDailyLimit)

	database.InitDB(cfg.Database)
	database.InitRedis(cfg.Database.Redis)

	// 阻塞式获取初始Run ID，之后健康检查器靠它发现Redis重启
	health.InitializeRunID()

	// 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 异步启动后台的持续健康检查器
	go health.StartRedisHealthCheck()

	// 两阶段停机：先让后台服务排空队列，超时后再强制退出
	gracefulManager := lifecycle.NewManager()
	forcefulManager := lifecycle.NewManager()

	gracefulHandle, err := gracefulManager.NewServiceHandle("feature-projector")
	if err != nil {
		panic(fmt.Sprintf("创建投影器停机句柄失败: %v", err))
	}
	forcefulHandle, err := forcefulManager.NewServiceHandle("feature-projector")
	if err != nil {
		panic(fmt.Sprintf("创建投影器停机句柄失败: %v", err))
	}
	vote.StartProjector(gracefulHandle, forcefulHandle)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("服务器启动失败: " + err.Error())
		}
	}()
	fmt.Println("服务器已准备就绪，开始监听 " + cfg.Server.Address)

	coordinator := shutdown.NewCoordinator(gracefulManager, forcefulManager)
	coordinator.ListenForSignalsAndShutdown(server)
}
