package vote

import (
	"testing"
	"time"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addVotes 直接插入有效投票行，绕过账本以便快速铺数据
func addVotes(t *testing.T, featureID uint, up, down int) {
	t.Helper()
	for i := 0; i < up; i++ {
		require.NoError(t, database.DB.Create(&Vote{
			FeatureID: featureID, VoterID: uuid.NewString(), Direction: DirectionUp,
		}).Error)
	}
	for i := 0; i < down; i++ {
		require.NoError(t, database.DB.Create(&Vote{
			FeatureID: featureID, VoterID: uuid.NewString(), Direction: DirectionDown,
		}).Error)
	}
}

func createTestFeatureAt(t *testing.T, title, category string, createdAt time.Time) *feature.Feature {
	t.Helper()
	f := &feature.Feature{
		Title:       title,
		Description: "测试描述",
		Category:    category,
		CreatorID:   uuid.NewString(),
		Status:      feature.StatusVoting,
	}
	f.CreatedAt = createdAt
	require.NoError(t, database.DB.Create(f).Error)
	return f
}

func TestRankingMostVotedWithTieBreak(t *testing.T) {
	setupTestDB(t)
	base := time.Now().Add(-time.Hour)

	older := createTestFeatureAt(t, "深色模式", "模板", base)
	newer := createTestFeatureAt(t, "批量导出", "导出", base.Add(10*time.Minute))
	third := createTestFeatureAt(t, "团队账户", "账户", base.Add(20*time.Minute))

	// 两个净得分5的建议和一个净得分3的建议，同分时先创建者在前
	addVotes(t, older.ID, 6, 1)
	addVotes(t, newer.ID, 5, 0)
	addVotes(t, third.ID, 4, 1)

	rankings, err := GetFeatureRankings(SortMostVoted, "", "")
	require.NoError(t, err)
	require.Len(t, rankings, 3)

	assert.Equal(t, older.ID, rankings[0].ID)
	assert.Equal(t, newer.ID, rankings[1].ID)
	assert.Equal(t, third.ID, rankings[2].ID)

	assert.Equal(t, int64(6), rankings[0].UpCount)
	assert.Equal(t, int64(1), rankings[0].DownCount)
	assert.Equal(t, int64(5), rankings[0].NetScore)
}

func TestRankingMostRecent(t *testing.T) {
	setupTestDB(t)
	base := time.Now().Add(-time.Hour)

	older := createTestFeatureAt(t, "深色模式", "模板", base)
	newer := createTestFeatureAt(t, "批量导出", "导出", base.Add(10*time.Minute))
	addVotes(t, older.ID, 10, 0)

	rankings, err := GetFeatureRankings(SortMostRecent, "", "")
	require.NoError(t, err)
	require.Len(t, rankings, 2)

	// 时间排序不看票数
	assert.Equal(t, newer.ID, rankings[0].ID)
	assert.Equal(t, older.ID, rankings[1].ID)
}

func TestRankingCategoryFilter(t *testing.T) {
	setupTestDB(t)
	base := time.Now().Add(-time.Hour)

	export := createTestFeatureAt(t, "批量导出", "导出", base)
	createTestFeatureAt(t, "深色模式", "模板", base.Add(time.Minute))

	rankings, err := GetFeatureRankings(SortMostVoted, "导出", "")
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, export.ID, rankings[0].ID)
}

func TestRankingIncludesZeroVoteFeatures(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")

	rankings, err := GetFeatureRankings(SortMostVoted, "", "")
	require.NoError(t, err)
	require.Len(t, rankings, 1)

	assert.Equal(t, f.ID, rankings[0].ID)
	assert.Equal(t, int64(0), rankings[0].UpCount)
	assert.Equal(t, int64(0), rankings[0].NetScore)
}

func TestRankingExcludesRetractedVotesAndRetiredFeatures(t *testing.T) {
	setupTestDB(t)
	live := createTestFeature(t, "深色模式")
	retired := createTestFeature(t, "旧功能")
	voterID := uuid.NewString()

	// 投了又撤的票不计分
	_, err := CastVote(voterID, live.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)
	_, err = CastVote(voterID, live.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, database.DB.Delete(retired).Error)

	rankings, err := GetFeatureRankings(SortMostVoted, "", "")
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, live.ID, rankings[0].ID)
	assert.Equal(t, int64(0), rankings[0].UpCount)
}

func TestRankingAnnotatesViewerDirection(t *testing.T) {
	setupTestDB(t)
	fa := createTestFeature(t, "深色模式")
	fb := createTestFeature(t, "批量导出")
	viewerID := uuid.NewString()

	addVotes(t, fa.ID, 2, 0)
	_, err := CastVote(viewerID, fa.ID, DirectionDown, "10.0.0.1")
	require.NoError(t, err)

	rankings, err := GetFeatureRankings(SortMostVoted, "", viewerID)
	require.NoError(t, err)
	require.Len(t, rankings, 2)

	byID := make(map[uint]RankedFeature, len(rankings))
	for _, r := range rankings {
		byID[r.ID] = r
	}
	assert.Equal(t, DirectionDown, byID[fa.ID].ViewerDirection)
	assert.Equal(t, DirectionNone, byID[fb.ID].ViewerDirection)
}

func TestRankingRejectsInvalidSort(t *testing.T) {
	setupTestDB(t)

	_, err := GetFeatureRankings(Sort("hottest"), "", "")
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestGetFeatureDetail(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	viewerID := uuid.NewString()

	addVotes(t, f.ID, 3, 1)
	_, err := CastVote(viewerID, f.ID, DirectionUp, "10.0.0.1")
	require.NoError(t, err)

	detail, err := GetFeatureDetail(f.ID, viewerID)
	require.NoError(t, err)

	assert.Equal(t, f.ID, detail.ID)
	assert.Equal(t, int64(4), detail.UpCount)
	assert.Equal(t, int64(1), detail.DownCount)
	assert.Equal(t, int64(3), detail.NetScore)
	assert.Equal(t, DirectionUp, detail.ViewerDirection)
}

func TestGetFeatureDetailOnRetiredFeature(t *testing.T) {
	setupTestDB(t)
	f := createTestFeature(t, "深色模式")
	require.NoError(t, database.DB.Delete(f).Error)

	_, err := GetFeatureDetail(f.ID, "")
	assert.ErrorIs(t, err, feature.ErrFeatureDeleted)

	_, err = GetFeatureDetail(99999, "")
	assert.ErrorIs(t, err, feature.ErrFeatureNotFound)
}
