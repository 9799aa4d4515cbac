package vote

import (
	"errors"
	"fmt"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/user"
	"gorm.io/gorm"
)

// maxCastRetries 是单次投票请求在唯一约束冲突下的最大重试次数
const maxCastRetries = 3

// CastResult 是一次投票操作完成后的权威结果
type CastResult struct {
	// Direction 是投票者在该建议上的新有效方向，撤票后为 none
	Direction Direction
	// UpCount 和 DownCount 是操作落库后该建议的实时票数
	UpCount   int64
	DownCount int64
}

// NetScore 返回净得分
func (r *CastResult) NetScore() int64 {
	return r.UpCount - r.DownCount
}

// CastVote 执行一次切换式投票：
//   - 无现存投票时插入新投票；
//   - 与现存投票同向时视为撤票，软删除现存行；
//   - 与现存投票反向时原地改写方向。
//
// 整个读-改-写在单个事务中完成。并发的重复插入由局部唯一索引拒绝，
// 表现为 gorm.ErrDuplicatedKey，此时重新读取现状并重试整个事务，
// 重试耗尽则返回 ErrVoteConflict。
func CastVote(voterID string, featureID uint, direction Direction, voterIP string) (*CastResult, error) {
	if voterID == "" {
		return nil, user.ErrNotAuthenticated
	}
	if !direction.IsStorable() {
		return nil, ErrInvalidDirection
	}

	var lastErr error
	for attempt := 0; attempt < maxCastRetries; attempt++ {
		result, err := tryCastVote(voterID, featureID, direction, voterIP)
		if err == nil {
			// 投票是一次有意义的行为，顺带把临时身份转正
			if aerr := user.ActivateVoter(voterID); aerr != nil {
				fmt.Printf("警告: 激活投票者 %s 失败: %v\n", voterID, aerr)
			}
			submitFeatureToProjector(featureID)
			return result, nil
		}
		if errors.Is(err, feature.ErrFeatureNotFound) || errors.Is(err, feature.ErrFeatureDeleted) {
			return nil, err
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		// 唯一索引拒绝了并发的重复写入，下一轮会重新读到对方的结果
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrVoteConflict, lastErr)
}

// tryCastVote 在单个事务中完成一次完整的读-改-写尝试
func tryCastVote(voterID string, featureID uint, direction Direction, voterIP string) (*CastResult, error) {
	var result CastResult
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 确认目标建议仍然在线
		if _, err := feature.FindLiveByID(tx, featureID); err != nil {
			return err
		}

		// 2. 查找该投票者在此建议上的现存有效投票（软删除行自动排除）
		var existing Vote
		err := tx.Where("feature_id = ? AND voter_id = ?", featureID, voterID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 3a. 没有现存投票，插入新行。
			// 若并发写入者抢先插入，唯一索引会让这里返回 ErrDuplicatedKey。
			newVote := Vote{FeatureID: featureID, VoterID: voterID, Direction: direction, VoterIP: voterIP}
			if err := tx.Create(&newVote).Error; err != nil {
				return err
			}
			result.Direction = direction
		case err != nil:
			return fmt.Errorf("查询现存投票失败: %w", err)
		case existing.Direction == direction:
			// 3b. 方向相同，视为撤票，软删除现存行
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("撤销投票失败: %w", err)
			}
			result.Direction = DirectionNone
		default:
			// 3c. 方向相反，原地改写方向
			if err := tx.Model(&existing).Update("direction", direction).Error; err != nil {
				return fmt.Errorf("更新投票方向失败: %w", err)
			}
			result.Direction = direction
		}

		// 4. 在同一事务内重新统计该建议的实时票数，保证返回值权威
		up, down, err := liveCounts(tx, featureID)
		if err != nil {
			return err
		}
		result.UpCount, result.DownCount = up, down
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// liveCounts 统计一个建议当前的有效赞成票和反对票数量
func liveCounts(tx *gorm.DB, featureID uint) (up int64, down int64, err error) {
	if err = tx.Model(&Vote{}).
		Where("feature_id = ? AND direction = ?", featureID, DirectionUp).
		Count(&up).Error; err != nil {
		return 0, 0, fmt.Errorf("统计赞成票失败: %w", err)
	}
	if err = tx.Model(&Vote{}).
		Where("feature_id = ? AND direction = ?", featureID, DirectionDown).
		Count(&down).Error; err != nil {
		return 0, 0, fmt.Errorf("统计反对票失败: %w", err)
	}
	return up, down, nil
}
