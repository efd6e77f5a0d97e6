package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMaskPII 敏感值按长度分级掩码
func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "a*", MaskPII("ab"))
	assert.Equal(t, "a**d", MaskPII("abcd"))

	masked := MaskPII("user@example.com")
	assert.True(t, strings.HasPrefix(masked, "us"), "长字符串应保留前两位")
	assert.True(t, strings.HasSuffix(masked, "om"), "长字符串应保留后两位")
	assert.NotContains(t, masked, "example", "中间部分必须被掩码")
}

// TestTruncateString 超长字符串截断并保留首尾
func TestTruncateString(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, TruncateString(short, 10), "未超长的字符串原样返回")

	long := strings.Repeat("x", 300)
	truncated := TruncateString(long, DefaultMaxLength)
	assert.LessOrEqual(t, len([]rune(truncated)), DefaultMaxLength)
	assert.Contains(t, truncated, "...")
}

// TestSafeAttributeValue 敏感键名触发掩码, 普通键名只截断
func TestSafeAttributeValue(t *testing.T) {
	v := SafeAttributeValue("user.email", "someone@example.com", DefaultMaxLength)
	assert.NotEqual(t, "someone@example.com", v, "email键应被掩码")

	v = SafeAttributeValue("db.statement", "SELECT 1", MaxSQLLength)
	assert.Equal(t, "SELECT 1", v, "普通键不掩码")
}
