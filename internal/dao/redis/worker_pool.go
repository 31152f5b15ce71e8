package redis

import (
	"go.uber.org/zap"
)

// cacheTask 缓存任务（纯闭包模式）
type cacheTask struct {
	Action func()
}

// cacheTaskChan 缓冲通道，用于接收缓存任务
var cacheTaskChan chan *cacheTask

// AsyncCacheService 异步缓存任务接口
// Service 层通过它提交非关键路径的缓存回写（如房间未读数缓存）
type AsyncCacheService interface {
	SubmitTask(action func())
}

// asyncCacheService 默认实现，投递到 worker pool
type asyncCacheService struct{}

// NewAsyncCacheService 返回异步缓存服务实例
func NewAsyncCacheService() AsyncCacheService {
	return &asyncCacheService{}
}

func (s *asyncCacheService) SubmitTask(action func()) {
	SubmitCacheTask(action)
}

// SubmitCacheTask 提交异步缓存任务
// 通道满时降级为同步执行，任务不丢
func SubmitCacheTask(action func()) {
	select {
	case cacheTaskChan <- &cacheTask{Action: action}:
	default:
		zap.L().Warn("Redis cache task channel full, executing synchronously")
		action()
	}
}

// startWorker 启动单个 Worker 消费循环
func startWorker() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Redis Worker panic", zap.Any("recover", r))
			go startWorker() // 重启
		}
	}()

	for task := range cacheTaskChan {
		if task.Action != nil {
			task.Action()
		}
	}
}

// InitCacheWorker 初始化缓存 Worker Pool
func InitCacheWorker(workerNum int, bufferSize int) {
	cacheTaskChan = make(chan *cacheTask, bufferSize)

	for i := 0; i < workerNum; i++ {
		go startWorker()
	}
	zap.L().Info("Redis Cache Workers started", zap.Int("workers", workerNum), zap.Int("buffer", bufferSize))
}
