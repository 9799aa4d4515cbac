package feature

import (
	"fmt"
	"strings"

	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/user"
)

// SuggestFeature 创建一条新的功能建议。
// 建议创建时没有任何投票；提交行为会顺带激活提交者的身份。
func SuggestFeature(creatorID, title, description, category string) (*Feature, error) {
	if creatorID == "" {
		return nil, user.ErrNotAuthenticated
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, ErrInvalidSuggestion
	}

	newFeature := Feature{
		Title:       title,
		Description: description,
		Category:    strings.TrimSpace(category),
		CreatorID:   creatorID,
		Status:      StatusVoting,
	}
	if err := database.DB.Create(&newFeature).Error; err != nil {
		return nil, fmt.Errorf("无法创建功能建议: %w", err)
	}

	// 首次提交建议的用户在这里完成激活；激活失败不影响建议本身
	if err := user.ActivateVoter(creatorID); err != nil {
		fmt.Printf("警告: 激活投票者 %s 失败: %v\n", creatorID, err)
	}

	return &newFeature, nil
}

// RetireFeature 将一条建议软删除下线。
// 只有建议的提交者可以下线自己的建议；建议下的投票会被原样冻结，不做级联删除。
func RetireFeature(id uint, actorID string) error {
	if actorID == "" {
		return user.ErrNotAuthenticated
	}

	f, err := FindLiveByID(database.DB, id)
	if err != nil {
		return err
	}
	if f.CreatorID != actorID {
		return ErrNotFeatureOwner
	}

	if err := database.DB.Delete(f).Error; err != nil {
		return fmt.Errorf("无法下线功能建议: %w", err)
	}
	return nil
}
