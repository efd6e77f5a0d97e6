package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStripFences 验证Markdown代码围栏的清理
func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`), "没有围栏时应原样返回")
	assert.Equal(t, `{"a":1}`, StripFences("\uFEFF{\"a\":1}"), "开头的BOM应被剥离")
	assert.Equal(t, "", StripFences("   "))
}

// TestExtractJSONObject 验证大括号配对提取
func TestExtractJSONObject(t *testing.T) {
	text := `前置解释文字 {"intent": "job_search", "nested": {"k": "v"}} 后置文字`
	assert.Equal(t, `{"intent": "job_search", "nested": {"k": "v"}}`, ExtractJSONObject(text))

	// 字符串内部的大括号不应干扰配对
	text2 := `{"msg": "braces } inside { string"}`
	assert.Equal(t, text2, ExtractJSONObject(text2))

	assert.Equal(t, "", ExtractJSONObject("没有任何JSON"))
}

// TestUnmarshalResponse 验证多级回退的解析流程
func TestUnmarshalResponse(t *testing.T) {
	type payload struct {
		Position string `json:"position"`
		Location string `json:"location"`
	}

	// 直接解析
	var p1 payload
	require.NoError(t, UnmarshalResponse(`{"position":"engineer","location":"remote"}`, &p1))
	assert.Equal(t, "engineer", p1.Position)

	// 带围栏和解释文字
	var p2 payload
	raw := "好的，以下是结果：\n```json\n{\"position\": \"data scientist\", \"location\": \"London\"}\n```"
	require.NoError(t, UnmarshalResponse(raw, &p2))
	assert.Equal(t, "data scientist", p2.Position)
	assert.Equal(t, "London", p2.Location)

	// 字符串内部未转义引号，需要修复后才能解析
	var p3 payload
	broken := `{"position": "senior "golang" engineer", "location": "Berlin"}`
	require.NoError(t, UnmarshalResponse(broken, &p3))
	assert.Contains(t, p3.Position, "golang")

	// 完全不是JSON时应返回错误
	var p4 payload
	assert.Error(t, UnmarshalResponse("这不是JSON", &p4))
}

// TestSalvageString 验证gjson按路径捞取字段
func TestSalvageString(t *testing.T) {
	raw := "```json\n{\"opening\": \"Dear Hiring Manager\", \"extra\": [1,2]}\n```"
	assert.Equal(t, "Dear Hiring Manager", SalvageString(raw, "opening"))
	assert.Equal(t, "", SalvageString(raw, "missing_field"))
	assert.Equal(t, "", SalvageString("不是JSON", "opening"))
}
