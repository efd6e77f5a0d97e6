package constants

import "time"

const (
	// 上传限制
	MaxResumeFileSize = 16 * 1024 * 1024 // 单个简历文件大小上限
	AllowedResumeExt  = ".pdf"           // 目前只接受PDF简历

	// 分析状态轮询的默认超时
	DefaultAnalysisTimeout = 30 * time.Second

	// 职位搜索默认返回数量
	DefaultJobTopN = 5

	// 分析结果缓存时长
	InsightsCacheDuration = 24 * time.Hour
)

// 简历提交处理状态
const (
	StatusPendingAnalysis   = "PENDING_ANALYSIS"
	StatusAnalyzing         = "ANALYZING"
	StatusAnalysisCompleted = "ANALYSIS_COMPLETED"
	StatusAnalysisFailed    = "ANALYSIS_FAILED"
)

// 上传接口返回给前端的提交状态
const (
	SubmissionStatusAccepted  = "SUBMITTED_FOR_ANALYSIS"
	SubmissionStatusDuplicate = "DUPLICATE_FILE_SKIPPED"
)
