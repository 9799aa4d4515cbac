package user

import (
	"errors"
	"fmt"

	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProvisionalVoter 生成一个临时的、尚未持久化的新投票者UUID。
// 这个UUID将被签名后设置到Cookie中，但此时尚未被“激活”。
func CreateProvisionalVoter() (string, error) {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return newUUID.String(), nil
}

// IsValidUUID 检查一个字符串是否是格式正确的UUID。
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsVoterActivated 检查一个给定的UUID是否已经被激活（即存在于我们的持久化系统中）。
// 它只查询Redis缓存，以获得最高性能。
func IsVoterActivated(uuidStr string) (bool, error) {
	if uuidStr == "" {
		return false, nil
	}
	exists, err := database.RDB.SIsMember(database.Ctx, KnownVotersKey, uuidStr).Result()
	if err != nil {
		return false, fmt.Errorf("检查Redis投票者缓存时出错: %w", err)
	}
	return exists, nil
}

// ActivateVoter 将一个临时的UUID正式持久化到数据库和缓存中。
// 这个操作是原子性的，如果缓存写入失败，数据库写入将被回滚。
func ActivateVoter(uuidStr string) error {
	if uuidStr == "" {
		return errors.New("无法激活空的投票者ID")
	}

	// 首先检查该投票者是否已经被激活，避免重复写入
	activated, err := IsVoterActivated(uuidStr)
	if err != nil {
		return err
	}
	if activated {
		return nil // 投票者已存在，无需操作
	}

	// 开启一个数据库事务
	tx := database.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("无法开始数据库事务: %w", tx.Error)
	}
	// 使用defer来确保事务在函数结束时总能被处理（提交或回滚）
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback() // 如果发生panic，回滚事务
		}
	}()

	// 在事务中创建数据库记录
	newVoter := Voter{UUID: uuidStr}
	if err := tx.Create(&newVoter).Error; err != nil {
		tx.Rollback()
		// 如果是因为记录已存在而出错，这不是一个真正的错误
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("无法在数据库中创建新投票者: %w", err)
	}

	// 尝试将新UUID添加到Redis缓存中
	if err := database.RDB.SAdd(database.Ctx, KnownVotersKey, uuidStr).Err(); err != nil {
		// 如果Redis写入失败，回滚数据库的写入，保证数据一致性
		tx.Rollback()
		return fmt.Errorf("无法将新投票者 %s 添加到Redis缓存: %w", uuidStr, err)
	}

	// 所有操作都成功，提交事务
	return tx.Commit().Error
}
