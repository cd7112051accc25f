package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// ── 通知投递 ──────────────────────────────────────────────
//
// 通知不是事实来源：换班记录提交后才投递，失败只记录日志，不影响业务结果。
// 有 Redis 时推入队列由外部邮件进程消费；无 Redis 时仅写日志。
// ─────────────────────────────────────────────────────────────

const notifyTimeout = 5 * time.Second

// 通知类型
const (
	NotificationSwapProposed  = "swap.proposed"
	NotificationPasswordReset = "auth.password_reset"
)

// Notification 投递给外部邮件进程的通知负载
type Notification struct {
	Type           string            `json:"type"`
	RecipientID    string            `json:"recipient_id"`
	RecipientEmail string            `json:"recipient_email"`
	Data           map[string]string `json:"data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Notifier 通知投递接口
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationQueue 通知队列（pkg/redis.Client 实现）
type NotificationQueue interface {
	EnqueueNotification(ctx context.Context, queueKey string, payload []byte) error
}

// NewNotifier queue 为 nil 时退化为日志通知
func NewNotifier(queue NotificationQueue, queueKey string, logger *zap.Logger) Notifier {
	if queue == nil {
		return &logNotifier{logger: logger}
	}
	return &queueNotifier{queue: queue, queueKey: queueKey}
}

type queueNotifier struct {
	queue    NotificationQueue
	queueKey string
}

func (n *queueNotifier) Notify(ctx context.Context, msg Notification) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.queue.EnqueueNotification(ctx, n.queueKey, payload)
}

type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("通知（未配置队列，仅记录）",
		zap.String("type", msg.Type),
		zap.String("recipient_id", msg.RecipientID),
	)
	return nil
}

// dispatchNotification 异步投递，脱离请求取消但保留上下文值
func dispatchNotification(ctx context.Context, notifier Notifier, logger *zap.Logger, msg Notification) {
	if notifier == nil {
		return
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := notifier.Notify(ctx, msg); err != nil {
			logger.Warn("通知投递失败",
				zap.String("type", msg.Type),
				zap.String("recipient_id", msg.RecipientID),
				zap.Error(err),
			)
		}
	}()
}
