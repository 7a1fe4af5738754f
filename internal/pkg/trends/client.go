// Package trends gathers lightweight content signals from public trend
// surfaces: RSS feeds over plain HTTP and rendered HTML pages parsed
// for titles and headlines.
package trends

import (
	"Trellis/internal/pkg/scrape"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher RSS 拉取方，业务层依赖接口方便测试替换
type Fetcher interface {
	FetchRSS(ctx context.Context, feedURL string) (string, error)
}

type Client struct {
	httpClient *resty.Client
}

// NewClient RSS 等静态源走普通 HTTP，无需浏览器渲染
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = scrape.DefaultUserAgent
	}

	client := resty.New().
		SetTimeout(20 * time.Second).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}).
		SetHeader("User-Agent", userAgent)

	return &Client{httpClient: client}
}

func (s *Client) FetchRSS(ctx context.Context, feedURL string) (string, error) {
	resp, err := s.httpClient.R().SetContext(ctx).Get(feedURL)
	if err != nil {
		return "", fmt.Errorf("fetch rss %s: %w", feedURL, err)
	}
	return resp.String(), nil
}
