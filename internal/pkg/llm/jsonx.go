package llm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

var jsonBlobRe = regexp.MustCompile(`(?s)(\[.*\]|\{.*\})`)

// StripFences 去掉模型回复外层的 ```json 围栏
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FirstJSONBlob 提取首个 JSON 数组或对象片段，模型常在前后夹带解释文字
func FirstJSONBlob(s string) string {
	m := jsonBlobRe.FindString(s)
	return strings.TrimSpace(m)
}

// BraceSlice 截取首个 { 到末个 } 之间的内容，用于对象回复的兜底加固
func BraceSlice(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// DecodeLoose 宽松解析模型输出：先剥围栏直接解析，失败再取 JSON 片段重试
func DecodeLoose(s string, v interface{}) error {
	cleaned := StripFences(s)
	if cleaned == "" {
		return errors.New("empty model output")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	blob := FirstJSONBlob(cleaned)
	if blob == "" {
		return errors.New("no json payload in model output")
	}
	return json.Unmarshal([]byte(blob), v)
}
