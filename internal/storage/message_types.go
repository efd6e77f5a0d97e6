package storage

import "time"

// ResumeAnalysisMessage 简历上传事件，发布到简历事件exchange供分析消费者处理
type ResumeAnalysisMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`        // 提交UUID，主键
	SessionID           string    `json:"session_id"`             // 发起上传的会话
	SubmissionTimestamp time.Time `json:"submission_timestamp"`   // 提交时间戳
	OriginalFilename    string    `json:"original_filename"`      // 原始文件名
	LocalFilePath       string    `json:"local_file_path"`        // 本地落盘路径
	ObjectKey           string    `json:"object_key,omitempty"`   // MinIO中的对象键，MinIO不可用时为空
	RawFileMD5          string    `json:"raw_file_md5,omitempty"` // 原始文件的MD5，用于失败时回滚去重记录
	FileSizeBytes       int64     `json:"file_size_bytes,omitempty"`
}
