package adapter

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
)

// 响应体最多读取 4MB
const maxBodyBytes = 4 << 20

var textPolicy = bluemonday.StrictPolicy()

// DoJSON 发送请求并将 2xx 响应解析到 out；非 2xx 返回带状态码的错误
func DoJSON(client *http.Client, req *http.Request, out interface{}, logger *logrus.Logger) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", req.URL.Host, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Errorf("关闭响应体失败: %v", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s 返回状态码 %d: %s", req.URL.Host, resp.StatusCode, Truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// StripHTML 去掉标签、还原实体并压缩空白
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	// 标签替换为空格，避免相邻段落粘连
	s = strings.NewReplacer("<", " <", ">", "> ").Replace(s)
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// MatchesKeywords 文本（小写）包含任一关键词
func MatchesKeywords(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// PainKeywords 求助/付费意愿类关键词（reddit、hacker_news 共用）
var PainKeywords = []string{
	"i wish",
	"someone should",
	"need help with",
	"would pay",
	"i'd pay",
	"someone make",
	"wish there was",
	"need a tool",
	"looking for something",
}
