package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- SQLite/PostgreSQL 键名 ---

const (
	// LastProjectionRebuildKey 记录最近一次完整投影重建的时间。
	LastProjectionRebuildKey = "last_projection_rebuild"

	// LastCleanShutdownKey 记录最近一次干净停机的时间，供启动诊断使用。
	LastCleanShutdownKey = "last_clean_shutdown"
)

// --- Redis 键名 ---

const (
	// RedisTotalVotesKey 是Redis中的计数器键，记录投影已观测到的有效投票总数。
	// 它是一个派生值，重建时总是以SQL中的实时行数为准。
	RedisTotalVotesKey = "board:total_votes"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// If the key doesn't exist, return an empty string, which is a valid default.
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue creates or updates a value for a given key within a transaction.
func SetValue(db *gorm.DB, key, value string) error {
	// Use GORM's OnConflict clause for an efficient and atomic "upsert" operation.
	// It will update the 'value' column if a record with the same 'key' already exists.
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&meta).Error
}

// --- Specific Helpers for Type Conversion ---

// GetLastProjectionRebuild 读取并解析最近一次投影重建的时间，未记录时返回零值。
func GetLastProjectionRebuild(db *gorm.DB) (time.Time, error) {
	valueStr, err := GetValue(db, LastProjectionRebuildKey)
	if err != nil {
		return time.Time{}, err
	}
	if valueStr == "" {
		return time.Time{}, nil
	}
	unix, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析元数据 '%s' 的值: %w", LastProjectionRebuildKey, err)
	}
	return time.Unix(unix, 0), nil
}

// SetLastProjectionRebuild 将最近一次投影重建的时间写入元数据表。
func SetLastProjectionRebuild(db *gorm.DB, t time.Time) error {
	return SetValue(db, LastProjectionRebuildKey, strconv.FormatInt(t.Unix(), 10))
}

// SetLastCleanShutdown 记录一次干净停机。
func SetLastCleanShutdown(db *gorm.DB, t time.Time) error {
	return SetValue(db, LastCleanShutdownKey, strconv.FormatInt(t.Unix(), 10))
}
