package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// SessionModulePrefix 会话模块
	SessionModulePrefix = "session"
	// ChatModulePrefix 聊天模块
	ChatModulePrefix = "chat"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"

	// EntityState 会话状态实体
	EntityState = "state"
	// EntityHistory 聊天历史实体
	EntityHistory = "history"
	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityStatus 分析状态实体
	EntityStatus = "status"
	// EntityInsights 分析结果实体
	EntityInsights = "insights"

	// KeySessionState 会话状态 (STRING, JSON)
	// 格式: app:session:state:{sessionID}
	KeySessionState = AppPrefix + ":" + SessionModulePrefix + ":" + EntityState + ":%s"

	// KeyChatHistory 会话聊天历史 (LIST)
	// 格式: app:chat:history:{sessionID}
	KeyChatHistory = AppPrefix + ":" + ChatModulePrefix + ":" + EntityHistory + ":%s"

	// KeyFileMD5Set 文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyAnalysisStatus 简历分析状态 (STRING)
	// 格式: app:resume:status:{submissionUUID}
	KeyAnalysisStatus = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityStatus + ":%s"

	// KeyResumeInsights 简历分析结果缓存 (STRING, JSON)
	// 格式: app:resume:insights:{submissionUUID}
	KeyResumeInsights = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityInsights + ":%s"

	// KeyAnalysisLock 分析任务分布式锁 (STRING)
	// 格式: app:resume:lock:{submissionUUID}
	KeyAnalysisLock = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityLock + ":%s"
)
