package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weel-backend/internal/cache"
)

// ErrRateLimited — лимит окна исчерпан.
var ErrRateLimited = errors.New("rate limit exceeded")

// FixedWindow — счётчик с фиксированным окном поверх кэш-хранилища
// (INCR + EXPIRE на первом инкременте). Отправки SMS ограничены им
// до 2 вызовов в минуту на ключ.
type FixedWindow struct {
	store  cache.Store
	limit  int64
	window time.Duration
}

func NewFixedWindow(store cache.Store, limit int64, window time.Duration) *FixedWindow {
	return &FixedWindow{store: store, limit: limit, window: window}
}

// Allow — учесть один вызов по ключу; ErrRateLimited при превышении лимита.
func (l *FixedWindow) Allow(ctx context.Context, key string) error {
	counterKey := fmt.Sprintf("rate:%s", key)
	n, err := l.store.Incr(ctx, counterKey)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if n == 1 {
		if err := l.store.Expire(ctx, counterKey, l.window); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	if n > l.limit {
		return ErrRateLimited
	}
	return nil
}
