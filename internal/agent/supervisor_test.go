package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/types"
)

// stubSource 测试用的职位来源
type stubSource struct {
	name     string
	listings []types.JobListing
	err      error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, position, location string, limit int) ([]types.JobListing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

func testInsights() *types.ResumeInsights {
	return &types.ResumeInsights{
		KeySkills:         []string{"Go", "Kubernetes", "SQL"},
		ExperienceSummary: "Five years building backend services.",
		EducationLevel:    "Bachelor's in Computer Science",
		CareerObjectives:  "Senior backend roles",
		ExperienceLevel:   "senior",
		SkillGaps:         map[string][]string{"technical": {"Rust"}},
		ImprovementAreas:  []string{"public speaking"},
	}
}

// TestClassifyIntent 验证有序意图表：先命中先赢，任何查询都有归类
func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		query  string
		intent types.Intent
	}{
		{"find me a software engineer job", types.IntentJobSearch},
		{"any open positions in Berlin?", types.IntentJobSearch},
		{"write a cover letter for this role", types.IntentCoverLetter},
		{"help me with my application letter", types.IntentCoverLetter},
		{"what skills does my resume show", types.IntentResume},
		{"improve my cv", types.IntentResume},
		{"research machine learning trends", types.IntentResearch},
		{"I want details about biotech", types.IntentResearch},
		{"hello there", types.IntentUnknown},
		{"", types.IntentUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.intent, ClassifyIntent(tc.query), "查询 %q 的意图分类不符", tc.query)
	}
}

// TestClassifyIntentTableOrder 同时命中多组关键词时，表中靠前的意图获胜
func TestClassifyIntentTableOrder(t *testing.T) {
	// "job" (job_search) 和 "resume" (resume) 同时出现
	assert.Equal(t, types.IntentJobSearch, ClassifyIntent("match my resume to a job"))
	// "cover letter" (cover_letter) 和 "skill" (resume) 同时出现
	assert.Equal(t, types.IntentCoverLetter, ClassifyIntent("cover letter highlighting my skill set"))
}

// TestUnknownIntentNeverCallsAgents 未知意图返回固定澄清文案，不触达任何代理
func TestUnknownIntentNeverCallsAgents(t *testing.T) {
	mock := llm.NewMockChatClient("should never be used", nil)
	js := NewJobSearchAgent(mock, []JobSource{&stubSource{name: "stub"}})
	cl := NewCoverLetterAgent(mock)
	sup := NewSupervisor(js, cl)

	turn := sup.ProcessQuery(context.Background(), "s1", "tell me a joke", nil)

	assert.Equal(t, types.IntentUnknown, turn.Intent)
	assert.Equal(t, ClarificationResponse, turn.Response)
	assert.Empty(t, turn.Agent, "未知意图不应标注任何代理")
	assert.Empty(t, turn.Error)
	assert.Equal(t, 0, mock.CallCount, "未知意图不应发起任何LLM调用")
}

// TestJobSearchFormatsByScoreDescending 评分为 [10,90,50] 的职位应按 90,50,10 排序输出
func TestJobSearchFormatsByScoreDescending(t *testing.T) {
	src := &stubSource{
		name: "stub",
		listings: []types.JobListing{
			{Position: "Junior Dev", Company: "A Corp", Description: "entry role"},
			{Position: "Staff Engineer", Company: "B Corp", Description: "senior role"},
			{Position: "Backend Dev", Company: "C Corp", Description: "mid role"},
		},
	}

	mock := llm.NewMockChatClientSequential([]llm.MockResponse{
		{Content: `{"position": "software engineer", "location": ""}`},
		{Content: `{"match_score": 10, "matching_skills": [], "missing_skills": ["Go"]}`},
		{Content: `{"match_score": 90, "matching_skills": ["Go"], "missing_skills": []}`},
		{Content: `{"match_score": 50, "matching_skills": ["SQL"], "missing_skills": []}`},
	})

	js := NewJobSearchAgent(mock, []JobSource{src})
	cl := NewCoverLetterAgent(mock)
	sup := NewSupervisor(js, cl)

	rc := &types.ResumeContext{Insights: testInsights()}
	turn := sup.ProcessQuery(context.Background(), "s1", "find me a software engineer job", rc)

	require.Empty(t, turn.Error, "职位搜索不应失败: %s", turn.Error)
	assert.Equal(t, types.IntentJobSearch, turn.Intent)
	assert.Equal(t, "JobSearchAgent", turn.Agent)

	// 按分数降序：Staff Engineer(90) -> Backend Dev(50) -> Junior Dev(10)
	posStaff := strings.Index(turn.Response, "Staff Engineer")
	posBackend := strings.Index(turn.Response, "Backend Dev")
	posJunior := strings.Index(turn.Response, "Junior Dev")
	require.True(t, posStaff >= 0 && posBackend >= 0 && posJunior >= 0, "三条职位都应出现在结果中")
	assert.Less(t, posStaff, posBackend, "90分的职位应排在50分之前")
	assert.Less(t, posBackend, posJunior, "50分的职位应排在10分之前")

	assert.Contains(t, turn.Response, "Match Score: 90")
	assert.Contains(t, turn.Response, "---", "职位之间应有分隔线")
}

// TestJobSearchInvalidScoreDropped 评分越界或解析失败的职位被丢弃
func TestJobSearchInvalidScoreDropped(t *testing.T) {
	src := &stubSource{
		name: "stub",
		listings: []types.JobListing{
			{Position: "Good Job", Description: "ok"},
			{Position: "Bad Score Job", Description: "score out of range"},
			{Position: "Garbage Job", Description: "not json"},
		},
	}

	mock := llm.NewMockChatClientSequential([]llm.MockResponse{
		{Content: `{"position": "engineer", "location": ""}`},
		{Content: `{"match_score": 75, "matching_skills": [], "missing_skills": []}`},
		{Content: `{"match_score": 150, "matching_skills": [], "missing_skills": []}`},
		{Content: `总之这不是JSON`},
	})

	js := NewJobSearchAgent(mock, []JobSource{src})
	rc := &types.ResumeContext{Insights: testInsights()}

	listings, err := js.Process(context.Background(), "engineer job", rc)
	require.NoError(t, err)
	require.Len(t, listings, 1, "只有评分合法的职位应保留")
	assert.Equal(t, "Good Job", listings[0].Position)
	assert.Equal(t, 75, listings[0].MatchScore)
}

// TestJobSearchTopN 结果超过topN时截断
func TestJobSearchTopN(t *testing.T) {
	var listings []types.JobListing
	for i := 0; i < 8; i++ {
		listings = append(listings, types.JobListing{Position: "Job", Description: "d"})
	}
	src := &stubSource{name: "stub", listings: listings}

	// 无简历上下文时不评分，只有一次查询改写调用
	mock := llm.NewMockChatClient(`{"position": "engineer", "location": ""}`, nil)
	js := NewJobSearchAgent(mock, []JobSource{src}, WithTopN(5))

	result, err := js.Process(context.Background(), "engineer job", nil)
	require.NoError(t, err)
	assert.Len(t, result, 5)
	assert.Equal(t, 1, mock.CallCount, "无简历时不应逐条评分")
}

// TestJobSearchAllSourcesFailing 所有来源失败时返回错误信封
func TestJobSearchAllSourcesFailing(t *testing.T) {
	src := &stubSource{name: "stub", err: errors.New("source down")}
	mock := llm.NewMockChatClient(`{"position": "engineer", "location": ""}`, nil)

	js := NewJobSearchAgent(mock, []JobSource{src})
	cl := NewCoverLetterAgent(mock)
	sup := NewSupervisor(js, cl)

	turn := sup.ProcessQuery(context.Background(), "s1", "find me a job", nil)

	assert.Equal(t, types.IntentJobSearch, turn.Intent)
	assert.Equal(t, "JobSearchAgent", turn.Agent)
	assert.NotEmpty(t, turn.Error, "代理失败时错误信息应透出")
	assert.NotEmpty(t, turn.Response, "失败时仍应返回可展示的兜底文案")
}

// TestResumeIntentWithoutInsights 会话无简历时简历意图直接报错，不调用LLM
func TestResumeIntentWithoutInsights(t *testing.T) {
	mock := llm.NewMockChatClient("unused", nil)
	sup := NewSupervisor(NewJobSearchAgent(mock, nil), NewCoverLetterAgent(mock))

	turn := sup.ProcessQuery(context.Background(), "s1", "what does my resume say", nil)

	assert.Equal(t, types.IntentResume, turn.Intent)
	assert.NotEmpty(t, turn.Error)
	assert.Equal(t, 0, mock.CallCount)
}

// TestResumeIntentFormatsKeyValueLines 有洞察时输出 key: value 行
func TestResumeIntentFormatsKeyValueLines(t *testing.T) {
	mock := llm.NewMockChatClient("unused", nil)
	sup := NewSupervisor(NewJobSearchAgent(mock, nil), NewCoverLetterAgent(mock))

	rc := &types.ResumeContext{Insights: testInsights()}
	turn := sup.ProcessQuery(context.Background(), "s1", "summarize my resume", rc)

	require.Empty(t, turn.Error)
	assert.Equal(t, "ResumeAdvisor", turn.Agent)
	assert.Contains(t, turn.Response, "key skills: Go, Kubernetes, SQL")
	assert.Contains(t, turn.Response, "experience level: senior")
	assert.Contains(t, turn.Response, "skill gaps: technical: Rust")
	assert.Equal(t, 0, mock.CallCount, "简历意图直接读取洞察，不应调用LLM")
}

// TestFormatSkillGapsByCategory 技能缺口按类别字母序稳定输出，空值给占位符
func TestFormatSkillGapsByCategory(t *testing.T) {
	gaps := map[string][]string{
		"technical": {"Rust", "Terraform"},
		"soft":      {"public speaking"},
	}
	assert.Equal(t, "soft: public speaking; technical: Rust, Terraform", formatSkillGaps(gaps))
	assert.Equal(t, "-", formatSkillGaps(nil), "无缺口时输出占位符")
}

// TestChatHistoryRecorded 每轮对话写入聊天历史
func TestChatHistoryRecorded(t *testing.T) {
	mock := llm.NewMockChatClient("unused", nil)
	memory := NewInMemoryChatMemory()
	sup := NewSupervisor(NewJobSearchAgent(mock, nil), NewCoverLetterAgent(mock), WithChatMemory(memory))

	sup.ProcessQuery(context.Background(), "session-42", "hello", nil)

	history, err := memory.GetHistory(context.Background(), "session-42")
	require.NoError(t, err)
	require.Len(t, history, 2, "应记录用户消息和助手回复")
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, ClarificationResponse, history[1].Content)
}
