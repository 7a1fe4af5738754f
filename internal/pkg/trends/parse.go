package trends

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// TrendItem RSS 热搜条目
type TrendItem struct {
	Trend   string
	Traffic string
}

// ParseTrendsRSS 解析 Google Trends 风格的 RSS，最多取 20 条
func ParseTrendsRSS(xmlText string) []TrendItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(xmlText))
	if err != nil {
		return nil
	}

	var items []TrendItem
	doc.Find("item").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 20 {
			return false
		}
		trend := strings.TrimSpace(sel.Find("title").First().Text())
		traffic := strings.TrimSpace(sel.Find("ht\\:approx_traffic").First().Text())
		if trend == "" {
			return true
		}
		items = append(items, TrendItem{Trend: trend, Traffic: traffic})
		return true
	})
	return items
}

// ParseVideoTitles 视频搜索结果页的标题，JS 重的页面只能拿到粗信号
func ParseVideoTitles(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var titles []string
	doc.Find("a#video-title").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 20 {
			return false
		}
		if t := strings.TrimSpace(sel.AttrOr("title", "")); t != "" {
			titles = append(titles, t)
		}
		return true
	})
	return titles
}

// ParseForumHeadlines 论坛流里的 h3 标题，长度过滤掉导航和噪声
func ParseForumHeadlines(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var headlines []string
	doc.Find("h3").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 25 {
			return false
		}
		t := strings.TrimSpace(sel.Text())
		if len(t) >= 12 && len(t) <= 140 {
			headlines = append(headlines, t)
		}
		return true
	})
	return headlines
}

// ExtractArticleText 提取文章正文并压缩空白，超长截断
func ExtractArticleText(html, pageURL string, maxLen int) string {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(article.TextContent, " "))
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}
