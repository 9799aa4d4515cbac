package startup

import (
	"fmt"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/platform/metadata"
	"github.com/describly/feature-board-backend/internal/user"
	"github.com/describly/feature-board-backend/internal/vote"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication() error {
	fmt.Println("开始应用首次初始化...")

	if err := metadata.PrimeDB(); err != nil {
		return err
	}
	if err := user.PrimeCachedDB(); err != nil {
		return err
	}
	if err := feature.PrimeDB(); err != nil {
		return err
	}
	if err := vote.PrimeModule(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 在运行时热重建Redis中的全部派生数据。
// 数据库是唯一事实来源，所以重建只是重新投影，不会丢失任何投票。
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")

	if err := user.WarmupCache(); err != nil {
		return err
	}
	if err := vote.RebuildIPVoteCache(); err != nil {
		return err
	}
	if err := vote.RebuildProjection(); err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}
