package vote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/platform/metadata"
	"github.com/redis/go-redis/v9"
)

// RebuildProjection 从数据库全量重建Redis中的排行榜投影。
// 用于应用启动初始化和Redis重启后的恢复，数据库始终是唯一事实来源。
func RebuildProjection() error {
	fmt.Println("正在从数据库重建排行榜投影...")

	// 1. 用与排行榜查询相同的聚合SQL取出所有在线建议的实时票数
	var rows []rankedRow
	if err := rankedQuery(database.DB, SortMostVoted, "").Scan(&rows).Error; err != nil {
		return fmt.Errorf("无法从数据库聚合票数: %w", err)
	}

	// 2. 原子地清空并重建两份投影，顺带重置全局总票数
	pipe := database.RDB.TxPipeline()
	pipe.Del(database.Ctx, FeatureStatsKey, FeatureRankingKey)

	var totalVotes int64
	ranking := make([]redis.Z, 0, len(rows))
	for _, row := range rows {
		member := strconv.FormatUint(uint64(row.ID), 10)
		statsJSON, _ := json.Marshal(FeatureStats{Up: row.UpCount, Down: row.DownCount, Net: row.NetScore})
		pipe.HSet(database.Ctx, FeatureStatsKey, member, statsJSON)
		ranking = append(ranking, redis.Z{Score: float64(row.NetScore), Member: member})
		totalVotes += row.UpCount + row.DownCount
	}
	if len(ranking) > 0 {
		pipe.ZAdd(database.Ctx, FeatureRankingKey, ranking...)
	}
	pipe.Set(database.Ctx, metadata.RedisTotalVotesKey, totalVotes, 0)

	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("批量写回排行榜投影失败: %w", err)
	}

	// 3. 在数据库中记录本次重建时间
	if err := metadata.SetLastProjectionRebuild(database.DB, time.Now()); err != nil {
		fmt.Printf("警告: 记录投影重建时间失败: %v\n", err)
	}

	fmt.Printf("排行榜投影重建完成，共 %d 条建议，%d 张有效投票。\n", len(rows), totalVotes)
	return nil
}
