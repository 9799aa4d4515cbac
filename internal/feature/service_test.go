package feature

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/internal/user"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_txlock=immediate&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Feature{}, &user.Voter{}))

	database.DB = db
	// 激活投票者的缓存写入在测试中允许失败，给一个指向空端口的客户端
	database.RDB = redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestSuggestFeature(t *testing.T) {
	setupTestDB(t)
	creatorID := uuid.NewString()

	f, err := SuggestFeature(creatorID, "  深色模式  ", "夜间使用太刺眼", "模板")
	require.NoError(t, err)

	assert.Equal(t, "深色模式", f.Title)
	assert.Equal(t, creatorID, f.CreatorID)
	assert.Equal(t, StatusVoting, f.Status)
	assert.NotZero(t, f.ID)
}

func TestSuggestFeatureValidation(t *testing.T) {
	setupTestDB(t)

	_, err := SuggestFeature("", "深色模式", "描述", "")
	assert.ErrorIs(t, err, user.ErrNotAuthenticated)

	_, err = SuggestFeature(uuid.NewString(), "   ", "描述", "")
	assert.ErrorIs(t, err, ErrInvalidSuggestion)

	_, err = SuggestFeature(uuid.NewString(), "深色模式", "", "")
	assert.ErrorIs(t, err, ErrInvalidSuggestion)
}

func TestRetireFeature(t *testing.T) {
	setupTestDB(t)
	creatorID := uuid.NewString()

	f, err := SuggestFeature(creatorID, "深色模式", "夜间使用太刺眼", "模板")
	require.NoError(t, err)

	require.NoError(t, RetireFeature(f.ID, creatorID))

	_, err = FindLiveByID(database.DB, f.ID)
	assert.ErrorIs(t, err, ErrFeatureDeleted)

	// 重复下线已下线的建议
	err = RetireFeature(f.ID, creatorID)
	assert.ErrorIs(t, err, ErrFeatureDeleted)
}

func TestRetireFeatureOwnership(t *testing.T) {
	setupTestDB(t)

	f, err := SuggestFeature(uuid.NewString(), "深色模式", "夜间使用太刺眼", "模板")
	require.NoError(t, err)

	err = RetireFeature(f.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFeatureOwner)

	err = RetireFeature(f.ID, "")
	assert.ErrorIs(t, err, user.ErrNotAuthenticated)

	err = RetireFeature(99999, uuid.NewString())
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}

func TestFindLiveByIDDistinguishesMissingFromDeleted(t *testing.T) {
	setupTestDB(t)
	creatorID := uuid.NewString()

	f, err := SuggestFeature(creatorID, "深色模式", "夜间使用太刺眼", "模板")
	require.NoError(t, err)

	found, err := FindLiveByID(database.DB, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, found.ID)

	_, err = FindLiveByID(database.DB, 99999)
	assert.ErrorIs(t, err, ErrFeatureNotFound)

	require.NoError(t, RetireFeature(f.ID, creatorID))
	_, err = FindLiveByID(database.DB, f.ID)
	assert.ErrorIs(t, err, ErrFeatureDeleted)
}

func TestListCategoriesMergesSeedAndInUse(t *testing.T) {
	setupTestDB(t)

	_, err := SuggestFeature(uuid.NewString(), "深色模式", "描述", "界面")
	require.NoError(t, err)
	_, err = SuggestFeature(uuid.NewString(), "批量导出", "描述", "导出")
	require.NoError(t, err)

	categories, err := ListCategories(database.DB)
	require.NoError(t, err)

	assert.Contains(t, categories, "界面")
	// 种子分类始终在列，即使还没有建议使用它
	for _, seed := range seedCategories {
		assert.Contains(t, categories, seed)
	}
	// 已在种子中的分类不重复出现
	count := 0
	for _, c := range categories {
		if c == "导出" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
