package user

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotAuthenticated 表示请求没有携带可解析的投票者身份。
// 调用方应将它转换为401，提示客户端先完成登录/身份签发。
var ErrNotAuthenticated = errors.New("未能识别投票者身份，请先登录")

// Voter 定义了投票者在主数据库中的持久化模型。
// 投票者的身份由外部身份系统解析后以UUID的形式下发，
// 这里只在其第一次产生有效行为（投票或提交建议）时落库。
type Voter struct {
	// UUID 是投票者的主键，来自签名的身份Cookie。
	UUID string `gorm:"primarykey;type:varchar(36)"`

	// 部分gorm.Model，由GORM自动管理
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
