package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/qween-beth/careerstack/internal/config"
	"github.com/qween-beth/careerstack/internal/logger"
)

const (
	// Groq 的 OpenAI 兼容端点
	groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	// OpenAI 官方端点，Groq Key 缺失时的回退提供商
	openAIAPIURL         = "https://api.openai.com/v1/chat/completions"
	defaultGroqModel     = "llama-3.3-70b-versatile"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultClientTimeout = 60 * time.Second
)

// --- OpenAI 兼容请求/响应结构 ---

type openAIResponseFormat struct {
	Type string `json:"type"` // "json_object" 或 "text"
}

type openAIChatCompletionRequest struct {
	Model          string                `json:"model"`
	Messages       []*schema.Message     `json:"messages"` // eino schema.Message 的 role/content 与 OpenAI 格式兼容
	Temperature    *float64              `json:"temperature,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAICompletionResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
}

// GroqChatModel 实现 model.ChatModel / model.ToolCallingChatModel 接口，
// 通过 OpenAI 兼容协议访问 Groq（或回退到 OpenAI）。
type GroqChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature *float64
	maxTokens   int
	jsonMode    bool
	httpClient  *http.Client
}

// Option 配置 GroqChatModel 的函数式选项
type Option func(*GroqChatModel)

// WithTemperature 设置采样温度
func WithTemperature(t float64) Option {
	return func(m *GroqChatModel) {
		m.temperature = &t
	}
}

// WithMaxTokens 设置单次生成的最大token数
func WithMaxTokens(n int) Option {
	return func(m *GroqChatModel) {
		m.maxTokens = n
	}
}

// WithJSONMode 要求服务端强制输出JSON对象
// 用于结构化解析任务，避免脆弱的文本截取
func WithJSONMode(on bool) Option {
	return func(m *GroqChatModel) {
		m.jsonMode = on
	}
}

// WithHTTPClient 替换底层HTTP客户端，主要用于测试
func WithHTTPClient(c *http.Client) Option {
	return func(m *GroqChatModel) {
		m.httpClient = c
	}
}

// NewGroqChatModel 创建一个新的 GroqChatModel 实例
func NewGroqChatModel(apiKey string, modelName string, apiURL string, opts ...Option) (*GroqChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultGroqModel
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = groqAPIURL
	}

	m := &GroqChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info().Str("api_url", url).Str("model", mn).Msg("LLM 客户端已初始化")
	return m, nil
}

// NewChatModelFromConfig 按配置选择提供商并创建模型
// 优先使用 Groq，未配置 Groq Key 时回退到 OpenAI
func NewChatModelFromConfig(cfg *config.Config, taskName string, opts ...Option) (*GroqChatModel, error) {
	modelName := cfg.GetModelForTask(taskName)
	apiURL := cfg.LLM.APIURL

	apiKey := cfg.LLM.GroqAPIKey
	if apiKey == "" {
		apiKey = cfg.LLM.OpenAIAPIKey
		if apiKey == "" {
			return nil, fmt.Errorf("未配置任何 LLM API 密钥 (GROQ_API_KEY / OPENAI_API_KEY)")
		}
		if apiURL == "" {
			apiURL = openAIAPIURL
		}
		if modelName == "" {
			modelName = defaultOpenAIModel
		}
	}

	baseOpts := []Option{
		WithTemperature(cfg.LLM.Temperature),
		WithMaxTokens(cfg.LLM.MaxTokens),
	}
	timeout := config.GetDuration(cfg.LLM.RequestTimeout, defaultClientTimeout)
	baseOpts = append(baseOpts, WithHTTPClient(&http.Client{Timeout: timeout}))
	baseOpts = append(baseOpts, opts...)

	return NewGroqChatModel(apiKey, modelName, apiURL, baseOpts...)
}

// Generate 实现 model.ChatModel 接口
func (g *GroqChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	// 通用选项目前不改变请求参数，结构化输出等通过构造时的 Option 配置
	for _, opt := range options {
		_ = opt
	}

	reqPayload := openAIChatCompletionRequest{
		Model:       g.modelName,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	if g.jsonMode {
		reqPayload.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Ctx(ctx).Debug().
		Str("model", g.modelName).
		Int("messages", len(messages)).
		Bool("json_mode", g.jsonMode).
		Msg("发送 LLM 请求")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var openAIResp openAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", string(bodyBytes))
	}

	apiMessage := openAIResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(apiMessage.Role),
		Content: responseContent,
	}
	if resultMessage.Role == "" {
		resultMessage.Role = schema.RoleType("assistant")
	}

	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口 (placeholder)
func (g *GroqChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("GroqChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口
// 当前的各个代理都不依赖工具调用，绑定仅记录日志
func (g *GroqChatModel) BindTools(tools []*schema.ToolInfo) error {
	logger.Debug().Int("tools", len(tools)).Msg("BindTools 被调用，当前实现不转发工具定义")
	return nil
}

// WithTools 满足 model.ToolCallingChatModel 接口
func (g *GroqChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := g.BindTools(tools); err != nil {
		return nil, err
	}
	return g, nil
}

var _ model.ChatModel = (*GroqChatModel)(nil)
var _ model.ToolCallingChatModel = (*GroqChatModel)(nil)
