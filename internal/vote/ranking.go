package vote

import (
	"errors"
	"fmt"
	"time"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/platform/database"
	"gorm.io/gorm"
)

// Sort 定义了排行榜的排序方式
type Sort string

const (
	// SortMostVoted 按净得分降序，同分时先创建者在前
	SortMostVoted Sort = "mostVoted"
	// SortMostRecent 按创建时间降序
	SortMostRecent Sort = "mostRecent"
)

// IsValid 判断排序方式是否合法
func (s Sort) IsValid() bool {
	return s == SortMostVoted || s == SortMostRecent
}

// ErrInvalidSort 表示请求中的排序方式不合法
var ErrInvalidSort = errors.New("无效的排序方式")

// RankedFeature 是排行榜中的一个条目，票数来自实时聚合
type RankedFeature struct {
	ID          uint
	Title       string
	Description string
	Category    string
	CreatorID   string
	Status      feature.Status
	CreatedAt   time.Time
	UpCount     int64
	DownCount   int64
	NetScore    int64
	// ViewerDirection 是当前请求者在该建议上的有效方向，匿名或未投票时为 none
	ViewerDirection Direction
}

// rankedRow 是聚合查询的扫描目标，字段名与查询列别名一一对应
type rankedRow struct {
	ID          uint
	Title       string
	Description string
	Category    string
	CreatorID   string
	Status      feature.Status
	CreatedAt   time.Time
	UpCount     int64
	DownCount   int64
	NetScore    int64
}

// rankedQuery 构造排行榜聚合查询。票数从有效投票行LEFT JOIN实时求和，
// 排序依赖 net_score 输出别名，sqlite 和 postgres 都接受裸别名排序。
func rankedQuery(tx *gorm.DB, sort Sort, category string) *gorm.DB {
	query := tx.Model(&feature.Feature{}).
		Select(`features.id, features.title, features.description, features.category,
			features.creator_id, features.status, features.created_at,
			COALESCE(SUM(CASE WHEN votes.direction = 'up' THEN 1 ELSE 0 END), 0) AS up_count,
			COALESCE(SUM(CASE WHEN votes.direction = 'down' THEN 1 ELSE 0 END), 0) AS down_count,
			COALESCE(SUM(CASE WHEN votes.direction = 'up' THEN 1 WHEN votes.direction = 'down' THEN -1 ELSE 0 END), 0) AS net_score`).
		Joins("LEFT JOIN votes ON votes.feature_id = features.id AND votes.deleted_at IS NULL").
		Group("features.id")
	if category != "" {
		query = query.Where("features.category = ?", category)
	}
	switch sort {
	case SortMostRecent:
		query = query.Order("features.created_at DESC")
	default:
		query = query.Order("net_score DESC").Order("features.created_at ASC")
	}
	return query
}

// GetFeatureRankings 返回排行榜。排序、类别过滤和请求者方向标注
// 都在同一个只读事务内完成，保证各字段来自同一快照。
func GetFeatureRankings(sort Sort, category string, viewerID string) ([]RankedFeature, error) {
	if !sort.IsValid() {
		return nil, ErrInvalidSort
	}

	var rows []rankedRow
	viewerDirections := make(map[uint]Direction)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := rankedQuery(tx, sort, category).Scan(&rows).Error; err != nil {
			return fmt.Errorf("查询排行榜失败: %w", err)
		}
		if viewerID != "" {
			var viewerVotes []Vote
			if err := tx.Where("voter_id = ?", viewerID).Find(&viewerVotes).Error; err != nil {
				return fmt.Errorf("查询请求者投票失败: %w", err)
			}
			for _, v := range viewerVotes {
				viewerDirections[v.FeatureID] = v.Direction
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rankings := make([]RankedFeature, 0, len(rows))
	for _, row := range rows {
		rankings = append(rankings, assembleRanked(row, viewerDirections))
	}
	return rankings, nil
}

// GetFeatureDetail 返回单个建议及其实时票数
func GetFeatureDetail(featureID uint, viewerID string) (*RankedFeature, error) {
	var detail RankedFeature
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		f, err := feature.FindLiveByID(tx, featureID)
		if err != nil {
			return err
		}
		up, down, err := liveCounts(tx, featureID)
		if err != nil {
			return err
		}
		detail = RankedFeature{
			ID:              f.ID,
			Title:           f.Title,
			Description:     f.Description,
			Category:        f.Category,
			CreatorID:       f.CreatorID,
			Status:          f.Status,
			CreatedAt:       f.CreatedAt,
			UpCount:         up,
			DownCount:       down,
			NetScore:        up - down,
			ViewerDirection: DirectionNone,
		}
		if viewerID != "" {
			var viewerVote Vote
			err := tx.Where("feature_id = ? AND voter_id = ?", featureID, viewerID).First(&viewerVote).Error
			switch {
			case err == nil:
				detail.ViewerDirection = viewerVote.Direction
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("查询请求者投票失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, feature.ErrFeatureNotFound) || errors.Is(err, feature.ErrFeatureDeleted) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &detail, nil
}

func assembleRanked(row rankedRow, viewerDirections map[uint]Direction) RankedFeature {
	direction, ok := viewerDirections[row.ID]
	if !ok {
		direction = DirectionNone
	}
	return RankedFeature{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Category:        row.Category,
		CreatorID:       row.CreatorID,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt,
		UpCount:         row.UpCount,
		DownCount:       row.DownCount,
		NetScore:        row.NetScore,
		ViewerDirection: direction,
	}
}
