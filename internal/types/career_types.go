package types

import "time"

// Intent 表示一次用户查询被路由到的意图类别
type Intent string

const (
	// IntentJobSearch 职位搜索意图
	IntentJobSearch Intent = "job_search"
	// IntentCoverLetter 求职信生成意图
	IntentCoverLetter Intent = "cover_letter"
	// IntentResume 简历分析意图
	IntentResume Intent = "resume"
	// IntentResearch 网络调研意图
	IntentResearch Intent = "research"
	// IntentUnknown 无法识别的意图
	IntentUnknown Intent = "unknown"
)

// JobRecommendation 简历分析产出的单条职位推荐
type JobRecommendation struct {
	Title           string   `json:"title"`
	MatchScore      int      `json:"match_score"` // 0-100
	RequiredSkills  []string `json:"required_skills"`
	MissingSkills   []string `json:"missing_skills"`
	NextSteps       []string `json:"next_steps"`
	JobSearchAdvice string   `json:"job_search_advice"`
}

// ResumeInsights 简历分析的结构化结果
type ResumeInsights struct {
	KeySkills         []string            `json:"key_skills"`
	ExperienceSummary string              `json:"experience_summary"`
	EducationLevel    string              `json:"education_level"`
	CareerObjectives  string              `json:"career_objectives"`
	RecommendedJobs   []JobRecommendation `json:"recommended_jobs"`
	// 技能缺口按类别归组，如 "technical" -> ["Rust", "Terraform"]
	SkillGaps         map[string][]string `json:"skill_gaps"`
	ImprovementAreas  []string            `json:"improvement_areas"`
	ExperienceLevel   string              `json:"experience_level"`
	// 从简历文本中识别出的公司/院校等组织名称
	Organizations []string  `json:"organizations,omitempty"`
	AnalyzedAt    time.Time `json:"analyzed_at,omitempty"`
}

// JobListing 职位搜索返回的单条职位
type JobListing struct {
	Position string `json:"position"`
	Company  string `json:"company"`
	Location string `json:"location"`
	// 职位描述或招聘正文摘录
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	// 针对当前简历的匹配度 (0-100)，未评分时为0
	MatchScore     int      `json:"match_score"`
	MatchingSkills []string `json:"matching_skills,omitempty"`
	MissingSkills  []string `json:"missing_skills,omitempty"`
}

// CoverLetter 求职信的四段式结构
type CoverLetter struct {
	Opening         string `json:"opening"`
	SkillsAlignment string `json:"skills_alignment"`
	Motivation      string `json:"motivation"`
	Closing         string `json:"closing"`
}

// ResearchFinding 网络调研中抓取到的单个页面摘要
type ResearchFinding struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// ResumeContext 聊天处理时可用的简历上下文
// Insights 为 nil 表示该会话尚未完成简历分析
type ResumeContext struct {
	SubmissionUUID string          `json:"submission_uuid,omitempty"`
	ResumeText     string          `json:"resume_text,omitempty"`
	Insights       *ResumeInsights `json:"insights,omitempty"`
}

// ChatTurn 一次聊天请求的完整处理结果
// Error 非空时 Response 仍携带可直接展示的兜底文案
type ChatTurn struct {
	Query    string    `json:"query"`
	Intent   Intent    `json:"intent"`
	Agent    string    `json:"agent,omitempty"` // 实际处理该请求的代理名称，未调用代理时为空
	Response string    `json:"response"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at,omitempty"`
}
