package stats

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/platform/metadata"
	"github.com/describly/feature-board-backend/internal/user"
	"github.com/describly/feature-board-backend/internal/vote"
	"github.com/redis/go-redis/v9"
)

// TopFeature 是看板报告中的一条头部建议
type TopFeature struct {
	FeatureID uint   `json:"feature_id"`
	Title     string `json:"title"`
	UpCount   int64  `json:"up_count"`
	DownCount int64  `json:"down_count"`
	NetScore  int64  `json:"net_score"`
}

// BoardReport 是整个看板的运营快照
type BoardReport struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	TotalFeatures int64        `json:"total_features"`
	TotalVotes    int64        `json:"total_votes"`
	TotalVoters   int64        `json:"total_voters"`
	TopFeatures   []TopFeature `json:"top_features"`
}

// GenerateBoardReport 生成看板报告。报告是展示性数据，优先从Redis投影
// 读取以保护数据库，投影不可用时退回数据库实时聚合。
func GenerateBoardReport(limit int) (*BoardReport, error) {
	if database.IsRedisHealthy() {
		report, err := generateReportFromRedis(limit)
		if err == nil {
			return report, nil
		}
		fmt.Printf("警告: 从Redis生成看板报告失败，退回数据库: %v\n", err)
	}
	return generateReportFromDB(limit)
}

// generateReportFromRedis 从排行榜投影拼装报告
func generateReportFromRedis(limit int) (*BoardReport, error) {
	pipe := database.RDB.TxPipeline()
	topCmd := pipe.ZRevRangeWithScores(database.Ctx, vote.FeatureRankingKey, 0, int64(limit-1))
	featuresCmd := pipe.ZCard(database.Ctx, vote.FeatureRankingKey)
	votersCmd := pipe.SCard(database.Ctx, user.KnownVotersKey)
	votesCmd := pipe.Get(database.Ctx, metadata.RedisTotalVotesKey)
	// 总票数键在首次重建前可能不存在，redis.Nil不算失败
	if _, err := pipe.Exec(database.Ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("读取投影失败: %w", err)
	}

	report := &BoardReport{
		GeneratedAt:   time.Now(),
		TotalFeatures: featuresCmd.Val(),
		TotalVoters:   votersCmd.Val(),
	}
	if total, err := votesCmd.Int64(); err == nil {
		report.TotalVotes = total
	}

	top := topCmd.Val()
	if len(top) == 0 {
		report.TopFeatures = []TopFeature{}
		return report, nil
	}

	// 票数细节从统计Hash补齐，标题从数据库补齐
	members := make([]string, 0, len(top))
	ids := make([]uint, 0, len(top))
	for _, z := range top {
		member := z.Member.(string)
		members = append(members, member)
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("投影中存在无效的建议ID %q", member)
		}
		ids = append(ids, uint(id))
	}

	statsJSONs, err := database.RDB.HMGet(database.Ctx, vote.FeatureStatsKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("读取票数统计失败: %w", err)
	}

	var features []feature.Feature
	if err := database.DB.Where("id IN ?", ids).Find(&features).Error; err != nil {
		return nil, fmt.Errorf("读取建议标题失败: %w", err)
	}
	titles := make(map[uint]string, len(features))
	for _, f := range features {
		titles[f.ID] = f.Title
	}

	report.TopFeatures = make([]TopFeature, 0, len(top))
	for i, z := range top {
		entry := TopFeature{FeatureID: ids[i], Title: titles[ids[i]], NetScore: int64(z.Score)}
		if raw, ok := statsJSONs[i].(string); ok {
			var fs vote.FeatureStats
			if err := json.Unmarshal([]byte(raw), &fs); err == nil {
				entry.UpCount, entry.DownCount, entry.NetScore = fs.Up, fs.Down, fs.Net
			}
		}
		report.TopFeatures = append(report.TopFeatures, entry)
	}
	return report, nil
}

// generateReportFromDB 直接从数据库聚合生成报告
func generateReportFromDB(limit int) (*BoardReport, error) {
	report := &BoardReport{GeneratedAt: time.Now()}

	if err := database.DB.Model(&feature.Feature{}).Count(&report.TotalFeatures).Error; err != nil {
		return nil, fmt.Errorf("统计建议总数失败: %w", err)
	}
	if err := database.DB.Model(&vote.Vote{}).Count(&report.TotalVotes).Error; err != nil {
		return nil, fmt.Errorf("统计有效投票总数失败: %w", err)
	}
	if err := database.DB.Model(&user.Voter{}).Count(&report.TotalVoters).Error; err != nil {
		return nil, fmt.Errorf("统计投票者总数失败: %w", err)
	}

	rankings, err := vote.GetFeatureRankings(vote.SortMostVoted, "", "")
	if err != nil {
		return nil, err
	}
	if limit > len(rankings) {
		limit = len(rankings)
	}
	report.TopFeatures = make([]TopFeature, 0, limit)
	for _, r := range rankings[:limit] {
		report.TopFeatures = append(report.TopFeatures, TopFeature{
			FeatureID: r.ID,
			Title:     r.Title,
			UpCount:   r.UpCount,
			DownCount: r.DownCount,
			NetScore:  r.NetScore,
		})
	}
	return report, nil
}
