package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// StripFences 去掉LLM输出中常见的Markdown代码围栏和BOM
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\uFEFF")
	if strings.HasPrefix(s, "```") {
		// 去掉 ```json / ``` 这样的首行
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ExtractJSONObject 通过大括号配对从文本中提取第一个完整的JSON对象
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inStr {
				escaped = true
			}
		case '"':
			inStr = !inStr
		case '{':
			if !inStr {
				level++
			}
		case '}':
			if !inStr {
				level--
				if level == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// SanitizeJSON 会遍历 src，将位于字符串字面量内部但并非真正结束的双引号改写为 \"，
// 以保证整个 JSON 在 Go 端能够正常反序列化。
// 通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束。
func SanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false

		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)

		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}

// UnmarshalResponse 将LLM的原始回复解析到目标结构体
// 依次尝试：直接解析 -> 去围栏 -> 大括号提取 -> 引号修复
func UnmarshalResponse(raw string, out interface{}) error {
	candidates := buildCandidates(raw)
	var firstErr error
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), out); err == nil {
			return nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("解析LLM的JSON回复失败: %w", firstErr)
}

func buildCandidates(raw string) []string {
	stripped := StripFences(raw)
	extracted := ExtractJSONObject(stripped)
	candidates := []string{stripped, extracted}
	if extracted != "" {
		candidates = append(candidates, SanitizeJSON(extracted))
	} else if stripped != "" {
		candidates = append(candidates, SanitizeJSON(stripped))
	}
	return candidates
}

// SalvageString 在结构化解析失败后，用gjson按路径尽力捞取字符串字段
func SalvageString(raw string, paths ...string) string {
	cleaned := StripFences(raw)
	candidates := []string{cleaned}
	if obj := ExtractJSONObject(cleaned); obj != "" {
		candidates = append(candidates, obj)
	}
	for _, c := range candidates {
		if !gjson.Valid(c) {
			continue
		}
		for _, p := range paths {
			if v := gjson.Get(c, p); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	return ""
}
