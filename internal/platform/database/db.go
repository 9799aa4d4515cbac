package database

import (
	"fmt"
	"log"
	"os"

	"github.com/describly/feature-board-backend/internal/platform/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的GORM实例，供项目其他部分使用
var DB *gorm.DB

// InitDB 根据配置初始化主数据库连接
func InitDB(cfg config.DatabaseConfig) {
	var err error

	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 在生产环境中可以设为Silent
			Colorful:      true,
		},
	)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Postgres.DSN)
	default:
		// _txlock=immediate 让所有写事务从BEGIN IMMEDIATE开始，避免升级死锁；
		// _busy_timeout 让并发写入者排队等待而不是立刻报错。
		dsn := fmt.Sprintf("%s?_txlock=immediate&_busy_timeout=5000", cfg.Sqlite.Path)
		dialector = sqlite.Open(dsn)
	}

	// TranslateError 让唯一约束冲突在两种驱动下都统一翻译为 gorm.ErrDuplicatedKey，
	// 这是投票账本冲突重试路径的前提。
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})

	if err != nil {
		fmt.Println("连接数据库失败", err)
		panic(err)
	}

	fmt.Println("数据库连接成功！")
}
