package feature

import (
	"fmt"

	"github.com/describly/feature-board-backend/internal/platform/database"
)

// seedCategories 是看板启动时内置的分类。
// 建议也可以带上不在此列表中的分类，ListCategories会把实际在用的分类合并进来。
var seedCategories = []string{"生成", "模板", "导出", "账户", "其他"}

// PrimeDB 负责自动迁移feature表结构
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Feature{}); err != nil {
		return fmt.Errorf("无法迁移feature表: %w", err)
	}
	fmt.Println("Feature数据库表迁移成功。")
	return nil
}
