package vote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/describly/feature-board-backend/internal/feature"
	"github.com/describly/feature-board-backend/internal/platform/database"
	"github.com/describly/feature-board-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	// FeatureStatsKey 是Redis中建议票数统计的Hash键名
	FeatureStatsKey = "feature_stats"
	// FeatureRankingKey 是Redis中按净得分排序的排行榜有序集合键名
	FeatureRankingKey = "feature_ranking"
)

// FeatureStats 是存储在Redis Hash中的单个建议的票数快照
type FeatureStats struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
	Net  int64 `json:"net"`
}

// featureProjector 是一个单一写入者，负责把被投票触及的建议
// 从数据库重算后投影到Redis（排行榜ZSet + 统计Hash）。
// 每次投影都是对单个建议的幂等全量重算，任务之间没有顺序依赖，
// 丢失的任务由巡查员的定期全量重建兜底。
type featureProjector struct {
	featureChan   chan uint
	isShutdown    bool
	shutdownMutex sync.Mutex
}

// globalProjector 是私有的全局projector实例
var globalProjector = featureProjector{
	featureChan: make(chan uint, 4096),
}

// StartProjector 启动投影处理循环，生命周期由两阶段停机句柄控制
func StartProjector(gracefulHandle, forcefulHandle *lifecycle.Handle) {
	go globalProjector.run(gracefulHandle, forcefulHandle)
}

// submitFeatureToProjector 供投票流程调用，提交一个需要重新投影的建议。
// 队列满时直接放弃，巡查员稍后会补上。
func submitFeatureToProjector(featureID uint) {
	globalProjector.shutdownMutex.Lock()
	defer globalProjector.shutdownMutex.Unlock()
	if globalProjector.isShutdown {
		return
	}
	select {
	case globalProjector.featureChan <- featureID:
	default:
		fmt.Printf("警告: 投影队列已满，暂时放弃建议 %d 的实时投影\n", featureID)
	}
}

// run 是投影器的主事件循环，响应两阶段停机
func (fp *featureProjector) run(gracefulHandle, forcefulHandle *lifecycle.Handle) {
	defer gracefulHandle.Close()
	defer forcefulHandle.Close()
	fmt.Println("投影处理器 (Feature Projector) 已启动。")

	// 巡查员定期执行全量重建，兜底队列满或写入失败造成的投影漂移
	patroller := time.NewTicker(10 * time.Minute)
	defer patroller.Stop()

	for {
		select {
		case <-gracefulHandle.Done():
			fmt.Println("Feature Projector: 收到优雅停机信号，正在处理剩余任务...")
			fp.drainQueue(forcefulHandle)
			fmt.Println("Feature Projector: 优雅停机完成，主循环退出。")
			return
		case featureID := <-fp.featureChan:
			fp.projectWithRetry(gracefulHandle, featureID)
		case <-patroller.C:
			if !database.IsRedisHealthy() {
				continue
			}
			if err := RebuildProjection(); err != nil {
				fmt.Printf("警告: 巡查员全量重建投影失败: %v\n", err)
			}
		}
	}
}

// drainQueue 在收到优雅停机信号后，尽力处理完channel中的剩余任务
func (fp *featureProjector) drainQueue(forcefulHandle *lifecycle.Handle) {
	// 关闭channel，不再接收新任务
	fp.shutdownMutex.Lock()
	fp.isShutdown = true
	close(fp.featureChan)
	fp.shutdownMutex.Unlock()

	for featureID := range fp.featureChan {
		select {
		case <-forcefulHandle.Done():
			fmt.Println("Feature Projector: 收到强制停机信号，排空队列被中断。")
			return
		default:
		}
		// 排空模式下不做重试，失败由下次启动时的全量重建兜底
		if err := projectFeature(featureID); err != nil {
			fmt.Printf("排空队列时投影建议 %d 失败，已放弃: %v\n", featureID, err)
		}
	}
}

// projectWithRetry 带指数退避地投影单个建议。
// Redis不健康时直接放弃，健康检查器恢复后会触发全量重建。
func (fp *featureProjector) projectWithRetry(gracefulHandle *lifecycle.Handle, featureID uint) {
	if !database.IsRedisHealthy() {
		return
	}

	initialDelay := 8 * time.Millisecond
	maxDelay := 2 * time.Second

	delay := initialDelay
	for delay < maxDelay {
		err := projectFeature(featureID)
		if err == nil {
			return
		}
		if err = gracefulHandle.Sleep(delay); err != nil {
			return
		}
		delay *= 2
	}
	fmt.Printf("警告: 建议 %d 的投影多次失败，交由巡查员兜底\n", featureID)
}

// projectFeature 把单个建议的实时票数从数据库重算后写入Redis。
// 建议已下线时改为把它从投影中移除。重算是幂等的，重复执行无害。
func projectFeature(featureID uint) error {
	member := strconv.FormatUint(uint64(featureID), 10)

	_, err := feature.FindLiveByID(database.DB, featureID)
	if errors.Is(err, feature.ErrFeatureNotFound) || errors.Is(err, feature.ErrFeatureDeleted) {
		pipe := database.RDB.TxPipeline()
		pipe.ZRem(database.Ctx, FeatureRankingKey, member)
		pipe.HDel(database.Ctx, FeatureStatsKey, member)
		if _, err := pipe.Exec(database.Ctx); err != nil {
			return fmt.Errorf("从投影中移除建议 %d 失败: %w", featureID, err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	up, down, err := liveCounts(database.DB, featureID)
	if err != nil {
		return err
	}

	statsJSON, _ := json.Marshal(FeatureStats{Up: up, Down: down, Net: up - down})
	pipe := database.RDB.TxPipeline()
	pipe.HSet(database.Ctx, FeatureStatsKey, member, statsJSON)
	pipe.ZAdd(database.Ctx, FeatureRankingKey, redis.Z{Score: float64(up - down), Member: member})
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("写入建议 %d 的投影失败: %w", featureID, err)
	}
	return nil
}
