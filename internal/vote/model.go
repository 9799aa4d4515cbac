package vote

import (
	"errors"

	"gorm.io/gorm"
)

// Direction 定义了投票方向的枚举类型
type Direction string

const (
	// DirectionUp 表示支持
	DirectionUp Direction = "up"
	// DirectionDown 表示反对
	DirectionDown Direction = "down"
	// DirectionNone 表示没有有效投票，只出现在结果中，不会落库
	DirectionNone Direction = "none"
)

// IsStorable 判断一个方向是否是可落库的有效投票方向
func (d Direction) IsStorable() bool {
	return d == DirectionUp || d == DirectionDown
}

// Vote 定义了单条投票记录的数据结构。
// 同一 (建议, 投票者) 组合在任意时刻至多存在一条未删除的记录，
// 由 idx_votes_live_pair 局部唯一索引在存储层强制保证——它是整个
// 账本并发正确性的唯一依据，应用层不持有任何锁。
// 撤票通过软删除实现，历史行保留用于审计；再次投票会插入新行。
type Vote struct {
	gorm.Model

	// FeatureID 是被投票的功能建议ID
	FeatureID uint `gorm:"not null;uniqueIndex:idx_votes_live_pair,where:deleted_at IS NULL,priority:1" json:"feature_id"`

	// VoterID 是投票者的UUID
	VoterID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_live_pair,priority:2" json:"voter_id"`

	// Direction 记录投票方向，up 或 down
	Direction Direction `gorm:"type:varchar(8);not null" json:"direction"`

	// VoterIP 记录投票请求的来源IP，仅用于频率限制的重建和审计
	VoterIP string `gorm:"type:varchar(64)" json:"-"`
}

// --- 模块错误 ---

var (
	// ErrInvalidDirection 表示请求中的投票方向不合法
	ErrInvalidDirection = errors.New("无效的投票方向")
	// ErrVoteConflict 表示与并发写入者反复冲突、重试耗尽
	ErrVoteConflict = errors.New("投票冲突，请重试")
	// ErrStoreUnavailable 表示存储层出现基础设施故障，可稍后重试
	ErrStoreUnavailable = errors.New("存储服务暂时不可用")
)
