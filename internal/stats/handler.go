package stats

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// defaultReportLimit 是报告中头部建议的默认数量
const defaultReportLimit = 10

// maxReportLimit 是报告中头部建议的数量上限
const maxReportLimit = 100

// GetReport 处理 GET /api/board/report 请求
func GetReport(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的limit参数"})
			return
		}
		if parsed > maxReportLimit {
			parsed = maxReportLimit
		}
		limit = parsed
	}

	report, err := GenerateBoardReport(limit)
	if err != nil {
		fmt.Printf("错误: 生成看板报告失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, report)
}
