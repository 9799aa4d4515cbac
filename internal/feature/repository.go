package feature

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// FindLiveByID 在给定的数据库句柄（可以是一个进行中的事务）上查找一条未下线的建议。
// 它会区分“从未存在”和“已被下线”两种情况，便于客户端给出可操作的提示。
func FindLiveByID(db *gorm.DB, id uint) (*Feature, error) {
	var f Feature
	err := db.First(&f, id).Error
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询功能建议失败: %w", err)
	}

	// 常规查询未命中，用Unscoped再查一次以区分软删除
	var deleted Feature
	err = db.Unscoped().First(&deleted, id).Error
	if err == nil && deleted.DeletedAt.Valid {
		return nil, ErrFeatureDeleted
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询功能建议失败: %w", err)
	}
	return nil, ErrFeatureNotFound
}

// ListCategories 返回所有在用的分类（种子分类加上建议中实际出现过的分类）。
func ListCategories(db *gorm.DB) ([]string, error) {
	categories := make([]string, 0, len(seedCategories))
	categories = append(categories, seedCategories...)

	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		seen[c] = true
	}

	var inUse []string
	err := db.Model(&Feature{}).Where("category != ?", "").Distinct("category").Order("category asc").Pluck("category", &inUse).Error
	if err != nil {
		return nil, fmt.Errorf("无法读取分类列表: %w", err)
	}
	for _, c := range inUse {
		if !seen[c] {
			categories = append(categories, c)
			seen[c] = true
		}
	}
	return categories, nil
}
