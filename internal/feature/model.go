package feature

import (
	"errors"

	"gorm.io/gorm"
)

// Status 定义了功能建议的生命周期状态
type Status string

const (
	// StatusVoting 表示建议处于开放投票阶段，新建议总是从这个状态开始
	StatusVoting Status = "voting"
)

// Feature 定义了一条功能建议的数据结构。
// 建议一经创建内容即不可变；下线时只做软删除，行会被保留用于审计，
// 但此后不再出现在任何列表和聚合查询中。
type Feature struct {
	// gorm.Model 包含 ID, CreatedAt, UpdatedAt, DeletedAt
	gorm.Model

	// Title 是建议的标题，由提交者填写
	Title string `gorm:"not null" json:"title"`

	// Description 是建议的详细描述
	Description string `gorm:"not null" json:"description"`

	// Category 是建议所属的分类，例如 "生成"、"模板"
	Category string `gorm:"index" json:"category"`

	// CreatorID 是提交者的投票者UUID
	CreatorID string `gorm:"type:varchar(36);not null;index" json:"creator_id"`

	// Status 是建议的当前状态
	Status Status `gorm:"type:varchar(16);not null" json:"status"`
}

// --- 模块错误 ---

var (
	// ErrFeatureNotFound 表示目标建议从未存在
	ErrFeatureNotFound = errors.New("找不到目标功能建议")
	// ErrFeatureDeleted 表示目标建议已被下线
	ErrFeatureDeleted = errors.New("目标功能建议已被移除")
	// ErrNotFeatureOwner 表示操作者不是建议的提交者
	ErrNotFeatureOwner = errors.New("只有建议的提交者可以执行此操作")
	// ErrInvalidSuggestion 表示建议内容不完整
	ErrInvalidSuggestion = errors.New("建议的标题和描述不能为空")
)
