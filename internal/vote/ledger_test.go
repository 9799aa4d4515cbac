package vote

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/describly/feature-board-backend/internal/feature"
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

// setupTestDB 把全局DB换成一个临时的文件SQLite库。
// 连接参数与生产配置一致，并发测试才有意义。
// Redis不参与账本的正确性，这里给一个指向空端口的客户端，
// 让激活投票者之类的缓存调用安全地失败。
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_txlock=immediate&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&feature.Feature{}, &user.Voter{}, &Vote{}))

	database.DB = db
	database.RDB = redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func createTestFeature(t *testing.T, title string) *feature.Feature {
	t.Helper()
	f := &feature.Feature{
		Title:       title,
		Description: "测试描述",
		Category:    "其他",
		CreatorID:   uuid.NewString(),
		Status:      feature.StatusVoting,
	}
	require.NoError(t, database.DB.Create(f).Error)
	return f
}

func TestCastVoteInsertsNewVote(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	voterID := uuid.NewString()

	result, err := CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, DirectionUp, result.Direction)
	assert.Equal(t, int64(1), result.UpCount)
	assert.Equal(t, int64(0), result.DownCount)
	assert.Equal(t, int64(1), result.NetScore())
}

func TestCastVoteSameDirectionRetracts(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	voterID := uuid.NewString()

	_, err := CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	result, err := CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, DirectionNone, result.Direction)
	assert.Equal(t, int64(0), result.UpCount)
	assert.Equal(t, int64(0), result.DownCount)

	// 撤票是软删除，历史行保留
	var liveCount, totalCount int64
	require.NoError(t, database.DB.Model(&Vote{}).Count(&liveCount).Error)
	require.NoError(t, database.DB.Unscoped().Model(&Vote{}).Count(&totalCount).Error)
	assert.Equal(t, int64(0), liveCount)
	assert.Equal(t, int64(1), totalCount)
}

func TestCastVoteOppositeDirectionSwitches(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	voterID := uuid.NewString()

	_, err := CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	result, err := CastVote(voterID, f.ID, DirectionDown, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, DirectionDown, result.Direction)
	assert.Equal(t, int64(0), result.UpCount)
	assert.Equal(t, int64(1), result.DownCount)

	// 换方向是原地改写，不产生新行
	var totalCount int64
	require.NoError(t, database.DB.Unscoped().Model(&Vote{}).Count(&totalCount).Error)
	assert.Equal(t, int64(1), totalCount)
}

func TestCastVoteAfterRetractInsertsFreshRow(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	voterID := uuid.NewString()

	_, err := CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)
	_, err = CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	result, err := CastVote(voterID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, DirectionUp, result.Direction)
	assert.Equal(t, int64(1), result.UpCount)

	var liveCount, totalCount int64
	require.NoError(t, database.DB.Model(&Vote{}).Count(&liveCount).Error)
	require.NoError(t, database.DB.Unscoped().Model(&Vote{}).Count(&totalCount).Error)
	assert.Equal(t, int64(1), liveCount)
	assert.Equal(t, int64(2), totalCount)
}

func TestCastVoteRejectsInvalidInput(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")

	_, err := CastVote("", f.ID, DirectionUp, "10.0.0.1")
	assert.ErrorIs(t, err, user.ErrNotAuthenticated)

	_, err = CastVote(uuid.NewString(), f.ID, Direction("sideways"), "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = CastVote(uuid.NewString(), f.ID, DirectionNone, "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestCastVoteOnMissingFeature(t *testing.T) {
	setupTestDB(t)

	_, err := CastVote(uuid.NewString(), 12345, DirectionUp, "10.0.0.1")
	assert.ErrorIs(t, err, feature.ErrFeatureNotFound)
}

func TestCastVoteOnRetiredFeature(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	require.NoError(t, database.DB.Delete(f).Error)

	_, err := CastVote(uuid.NewString(), f.ID, DirectionUp, "10.0.0.1")
	assert.ErrorIs(t, err, feature.ErrFeatureDeleted)
}

func TestConcurrentDistinctVoters(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")

	const voters = 20
	var wg sync.WaitGroup
	errChan := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			voterID := uuid.NewString()
			if _, err := CastVote(voterID, f.ID, DirectionUp, fmt.Sprintf("10.0.0.%d", n)); err != nil {
				errChan <- err
			}
		}(i)
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		t.Errorf("并发投票失败: %v", err)
	}

	up, down, err := liveCounts(database.DB, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), up)
	assert.Equal(t, int64(0), down)
}

func TestConcurrentSameVoterKeepsOneLiveVote(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	voterID := uuid.NewString()

	// 同一个投票者的并发切换允许以冲突失败，但任何时刻
	// 同一 (建议, 投票者) 至多存在一条有效投票。
	const attempts = 16
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			direction := DirectionUp
			if n%2 == 1 {
				direction = DirectionDown
			}
			_, err := CastVote(voterID, f.ID, direction, "10.0.0.1")
			if err != nil && !errors.Is(err, ErrVoteConflict) {
				t.Errorf("意外的投票错误: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var liveCount int64
	require.NoError(t, database.DB.Model(&Vote{}).
		Where("feature_id = ? AND voter_id = ?", f.ID, voterID).
		Count(&liveCount).Error)
	assert.LessOrEqual(t, liveCount, int64(1))
}

func TestVotesOnDifferentFeaturesAreIndependent(t *testing.T) {
	setupTestDB(t)
	fa := createTestFeature(t, "深色模式")
	fb := createTestFeature(t, "批量导出")
	voterID := uuid.NewString()

	_, err := CastVote(voterID, fa.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)
	result, err := CastVote(voterID, fb.ID, DirectionDown, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, DirectionDown, result.Direction)

	upA, _, err := liveCounts(database.DB, fa.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), upA)
}
