package vote

import (
	"fmt"

	"github.com/describly/feature-board-backend/internal/platform/database"
)

// PrimeDB 迁移投票账本的数据库结构。
// 迁移会创建 idx_votes_live_pair 局部唯一索引，它是账本一致性的基石。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Vote{}); err != nil {
		return fmt.Errorf("无法迁移votes表: %w", err)
	}
	fmt.Println("Votes表迁移成功。")
	return nil
}

// PrimeModule 完成vote模块的全部初始化：迁移表结构、
// 重建IP频率缓存和排行榜投影。
func PrimeModule() error {
	if err := PrimeDB(); err != nil {
		return err
	}
	if err := RebuildIPVoteCache(); err != nil {
		return fmt.Errorf("无法重建IP频率缓存: %w", err)
	}
	if err := RebuildProjection(); err != nil {
		return fmt.Errorf("无法重建排行榜投影: %w", err)
	}
	return nil
}
