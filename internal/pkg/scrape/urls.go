package scrape

import "fmt"

// HashtagURL 返回话题聚合页地址
func HashtagURL(tag string) string {
	return fmt.Sprintf("https://www.instagram.com/explore/tags/%s/", tag)
}

// PostURL 返回单条帖子页地址
func PostURL(shortcode string) string {
	return fmt.Sprintf("https://www.instagram.com/p/%s/", shortcode)
}

// ProfileURL 返回个人主页地址
func ProfileURL(handle string) string {
	return fmt.Sprintf("https://www.instagram.com/%s/", handle)
}
