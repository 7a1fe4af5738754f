package scrape

import (
	"Trellis/internal/config"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher 拉取一个 URL 的完整渲染 HTML
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Browser 共享一个无头浏览器进程，每次 Fetch 开一个带独立超时的标签页。
// 登录墙、限流页属于"成功"的抓取，由调用方自行识别。
type Browser struct {
	cfg config.BrowserConfig

	mu         sync.Mutex
	browserCtx context.Context
	cancels    []context.CancelFunc
}

func NewBrowser(cfg config.BrowserConfig) *Browser {
	return &Browser{cfg: cfg}
}

// ensure 首次调用时启动浏览器引擎，之后复用同一个实例
func (s *Browser) ensure() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	ua := s.cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(ua),
	)
	if s.cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(s.cfg.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser engine: %w", err)
	}

	s.browserCtx = browserCtx
	s.cancels = []context.CancelFunc{browserCancel, allocCancel}
	return s.browserCtx, nil
}

// Fetch 渲染页面并返回完整 HTML，导航失败或超时返回包装后的错误
func (s *Browser) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	browserCtx, err := s.ensure()
	if err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	timeout := time.Duration(s.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	blockHeavyResources(tabCtx)

	tasks := chromedp.Tasks{
		fetch.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(`body`),
	}
	if s.cfg.WaitMS > 0 {
		tasks = append(tasks, chromedp.Sleep(time.Duration(s.cfg.WaitMS)*time.Millisecond))
	}
	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return html, nil
}

// blockHeavyResources 拦截图片/媒体/字体请求，只留驱动解析所需的文档与脚本
func blockHeavyResources(tabCtx context.Context) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(tabCtx)
			ectx := cdp.WithExecutor(tabCtx, c.Target)
			switch paused.ResourceType {
			case network.ResourceTypeImage, network.ResourceTypeMedia, network.ResourceTypeFont:
				_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
			default:
				_ = fetch.ContinueRequest(paused.RequestID).Do(ectx)
			}
		}()
	})
}

func (s *Browser) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.browserCtx = nil
	s.cancels = nil
}
