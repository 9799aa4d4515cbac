package user

import (
	"fmt"

	"github.com/describly/feature-board-backend/internal/platform/database"
)

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&Voter{}); err != nil {
		return fmt.Errorf("无法迁移voter表: %w", err)
	}
	fmt.Println("Voter数据库表迁移成功。")
	return nil
}

// WarmupCache 从主数据库加载所有已激活的投票者UUID，并预热到Redis的Set中
func WarmupCache() error {
	var voters []Voter
	// 1. 从数据库读取所有投票者的UUID
	if err := database.DB.Select("uuid").Find(&voters).Error; err != nil {
		return fmt.Errorf("无法从数据库读取投票者UUID: %w", err)
	}

	if len(voters) == 0 {
		fmt.Println("无现有投票者数据，无需预热投票者缓存。")
		return nil
	}

	// 2. 将UUID转换为interface{}切片以用于SAdd
	voterUUIDs := make([]interface{}, len(voters))
	for i, v := range voters {
		voterUUIDs[i] = v.UUID
	}

	// 3. 使用Pipeline批量将所有UUID添加到Redis的Set中
	pipe := database.RDB.Pipeline()
	// 先清空旧的缓存，确保数据一致性
	pipe.Del(database.Ctx, KnownVotersKey)
	// 一次性添加所有成员
	pipe.SAdd(database.Ctx, KnownVotersKey, voterUUIDs...)

	_, err := pipe.Exec(database.Ctx)
	if err != nil {
		return fmt.Errorf("预热投票者UUID到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个投票者UUID到Redis。\n", len(voters))
	return nil
}

// PrimeCachedDB 是user模块的初始化总入口
func PrimeCachedDB() error {
	if err := migrateDB(); err != nil {
		return err
	}
	if err := WarmupCache(); err != nil {
		return err
	}
	return nil
}
