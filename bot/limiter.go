package bot

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const defaultTrackedChats = 1024

// ChatLimiter hands each chat its own token bucket. Only the most recently
// active chats are tracked; an evicted chat starts again with a full bucket.
// A nil ChatLimiter allows everything.
type ChatLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[int64, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewChatLimiter allows perMinute quotes per chat with the given burst.
// It returns nil, meaning unlimited, when perMinute is not positive.
func NewChatLimiter(perMinute float64, burst, tracked int) (*ChatLimiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	if burst < 1 {
		burst = 1
	}
	if tracked <= 0 {
		tracked = defaultTrackedChats
	}
	cache, err := lru.New[int64, *rate.Limiter](tracked)
	if err != nil {
		return nil, err
	}
	return &ChatLimiter{
		limiters: cache,
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
	}, nil
}

// Allow consumes one token from the chat's bucket.
func (l *ChatLimiter) Allow(chatID int64) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters.Get(chatID)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(chatID, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}
