package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证 YAML 配置文件能否被成功加载
func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
server:
  address: ":9090"
llm:
  model: "llama-3.3-70b-versatile"
  temperature: 0.3
  task_models:
    analyzer: "llama-3.1-8b-instant"
job_search:
  top_n: 3
  source_timeout: "8s"
session:
  cookie_name: "cs_session"
  analysis_timeout: "30s"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载具有正确语法的配置不应返回错误")
	require.NotNil(t, config, "配置对象不应为 nil")

	assert.Equal(t, ":9090", config.Server.Address, "Server.Address 的值与预期不符")
	assert.Equal(t, 3, config.JobSearch.TopN, "JobSearch.TopN 的值与预期不符")
	assert.Equal(t, "8s", config.JobSearch.SourceTimeout)
	assert.Equal(t, "cs_session", config.Session.CookieName)

	// 验证 task_models map
	assert.Equal(t, "llama-3.1-8b-instant", config.GetModelForTask("analyzer"), "analyzer 任务应使用专用模型")
	assert.Equal(t, "llama-3.3-70b-versatile", config.GetModelForTask("cover_letter"), "未配置专用模型的任务应回退到默认模型")
}

// TestLoadConfigAppliesDefaults 验证缺省字段会被填上默认值
func TestLoadConfigAppliesDefaults(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-defaults")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte("llm:\n  model: \"gpt-4o-mini\"\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, ":8080", config.Server.Address, "缺省服务器地址应为 :8080")
	assert.Equal(t, 16, config.Uploads.MaxFileSizeMB, "缺省上传大小上限应为 16MB")
	assert.Equal(t, int64(16*1024*1024), config.MaxUploadBytes())
	assert.Equal(t, 5, config.JobSearch.TopN, "缺省返回职位数应为 5")
	assert.Equal(t, "30s", config.Session.AnalysisTimeout)
	assert.Contains(t, config.Research.AllowedDomains, "en.wikipedia.org", "缺省域名白名单应包含维基百科")
}

// TestEnvOverrides 验证环境变量覆盖 YAML 中的密钥配置
func TestEnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_from_env")
	t.Setenv("SECRET_KEY", "secret_from_env")
	t.Setenv("INDEED_API_KEY", "indeed_from_env")

	tmpDir, err := os.MkdirTemp("", "config-test-env")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	yamlContent := `
llm:
  groq_api_key: "gsk_from_yaml"
session:
  secret_key: "secret_from_yaml"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gsk_from_env", config.LLM.GroqAPIKey, "环境变量应覆盖 YAML 中的 Groq API Key")
	assert.Equal(t, "secret_from_env", config.Session.SecretKey, "环境变量应覆盖 YAML 中的会话密钥")
	assert.Equal(t, "indeed_from_env", config.JobSearch.IndeedAPIKey)
}

// TestGetDuration 验证配置中的时长字符串解析
func TestGetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetDuration("30s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute), "空字符串应返回默认值")
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute), "非法字符串应返回默认值")
}
