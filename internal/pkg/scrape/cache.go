package scrape

import (
	"context"
	"sync"
)

// RunCache 单次任务内的 URL→HTML 缓存，同一 URL 只真实抓取一次。
// 只缓存成功结果，生命周期跟随一次 run，不做跨任务共享。
type RunCache struct {
	next Fetcher

	mu    sync.Mutex
	pages map[string]string
}

func NewRunCache(next Fetcher) *RunCache {
	return &RunCache{
		next:  next,
		pages: make(map[string]string),
	}
}

func (s *RunCache) Fetch(ctx context.Context, pageURL string) (string, error) {
	s.mu.Lock()
	if html, ok := s.pages[pageURL]; ok {
		s.mu.Unlock()
		return html, nil
	}
	s.mu.Unlock()

	html, err := s.next.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.pages[pageURL] = html
	s.mu.Unlock()
	return html, nil
}

// Len 当前缓存的页面数
func (s *RunCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}
