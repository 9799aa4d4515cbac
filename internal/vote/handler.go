package vote

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// VoteRequestBody 定义了投票请求的JSON结构
type VoteRequestBody struct {
	Direction Direction `json:"direction" binding:"required"`
}

// VoteResponse 是投票操作的权威结果
type VoteResponse struct {
	Direction Direction `json:"direction"`
	UpCount   int64     `json:"up_count"`
	DownCount int64     `json:"down_count"`
	NetScore  int64     `json:"net_score"`
}

// RankedFeatureResponse 是排行榜条目的API表示
type RankedFeatureResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	CreatorID       string    `json:"creator_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpCount         int64     `json:"up_count"`
	DownCount       int64     `json:"down_count"`
	NetScore        int64     `json:"net_score"`
	ViewerDirection Direction `json:"viewer_direction"`
}

func formatRanked(r RankedFeature) RankedFeatureResponse {
	return RankedFeatureResponse{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		CreatorID:       r.CreatorID,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpCount:         r.UpCount,
		DownCount:       r.DownCount,
		NetScore:        r.NetScore,
		ViewerDirection: r.ViewerDirection,
	}
}

// SubmitVote 处理 POST /api/features/:id/vote 请求
func SubmitVote(c *gin.Context) {
	voterID := c.GetString(user.VoterIDKey)
	if voterID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": user.ErrNotAuthenticated.Error()})
		return
	}

	featureID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的建议ID"})
		return
	}

	var body VoteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: " + err.Error()})
		return
	}

	// IP频率限制先行，投票失败时通过补偿句柄回滚计数
	clientIP := c.ClientIP()
	count, compensator, err := IncrementIPVoteCount(clientIP, time.Now())
	if err != nil {
		fmt.Printf("警告: IP频率限制不可用: %v\n", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
		return
	}
	defer compensator.RollbackUnlessCommitted()

	if count > IPDailyLimit() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "投票过于频繁，请稍后再试"})
		return
	}

	result, err := CastVote(voterID, uint(featureID), body.Direction, clientIP)
	if err != nil {
		respondCastError(c, err)
		return
	}

	compensator.Commit()
	c.JSON(http.StatusOK, VoteResponse{
		Direction: result.Direction,
		UpCount:   result.UpCount,
		DownCount: result.DownCount,
		NetScore:  result.NetScore(),
	})
}

// respondCastError 把账本错误映射为HTTP状态码
func respondCastError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidDirection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, feature.ErrFeatureNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, feature.ErrFeatureDeleted):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, ErrVoteConflict):
		c.JSON(http.StatusConflict, gin.H{"error": ErrVoteConflict.Error()})
	case errors.Is(err, ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStoreUnavailable.Error()})
	default:
		fmt.Printf("错误: 投票处理失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}

// GetRanking 处理 GET /api/features/ranking 请求
func GetRanking(c *gin.Context) {
	sort := Sort(c.DefaultQuery("sort", string(SortMostVoted)))
	category := c.Query("category")
	viewerID := c.GetString(user.VoterIDKey)

	rankings, err := GetFeatureRankings(sort, category, viewerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSort):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStoreUnavailable.Error()})
		default:
			fmt.Printf("错误: 查询排行榜失败: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
		return
	}

	responses := make([]RankedFeatureResponse, 0, len(rankings))
	for _, r := range rankings {
		responses = append(responses, formatRanked(r))
	}
	c.JSON(http.StatusOK, responses)
}

// GetFeatureByID 处理 GET /api/features/:id 请求
func GetFeatureByID(c *gin.Context) {
	featureID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的建议ID"})
		return
	}

	detail, err := GetFeatureDetail(uint(featureID), c.GetString(user.VoterIDKey))
	if err != nil {
		switch {
		case errors.Is(err, feature.ErrFeatureNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, feature.ErrFeatureDeleted):
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		case errors.Is(err, ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStoreUnavailable.Error()})
		default:
			fmt.Printf("错误: 查询建议详情失败: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
		return
	}
	c.JSON(http.StatusOK, formatRanked(*detail))
}
