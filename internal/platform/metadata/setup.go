package metadata

import (
	"fmt"

	"github.com/describly/feature-board-backend/internal/platform/database"
)

// PrimeDB 负责自动迁移元数据表结构
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("无法迁移metadata表: %w", err)
	}
	fmt.Println("Metadata数据库表迁移成功。")
	return nil
}
