package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ResumeSubmission 简历提交/快照表
type ResumeSubmission struct {
	SubmissionUUID      string         `gorm:"type:char(36);primaryKey"`
	SessionID           string         `gorm:"type:varchar(128);index:idx_rs_session_id"`
	SubmissionTimestamp time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	OriginalFilename    string         `gorm:"type:varchar(255)"`
	LocalFilePath       string         `gorm:"type:varchar(1024)"`
	ObjectKeyOSS        string         `gorm:"type:varchar(1024)"`
	RawFileMD5          string         `gorm:"type:char(32);index:idx_rs_raw_file_md5"`
	FileSizeBytes       int64          `gorm:"type:bigint"`
	InsightsJSON        datatypes.JSON `gorm:"type:json"`
	ProcessingStatus    string         `gorm:"type:varchar(50);default:'PENDING_ANALYSIS';index:idx_rs_processing_status"`
	AnalysisError       string         `gorm:"type:text"`
	AnalyzedAt          *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// ChatMessage 会话消息留痕表
type ChatMessage struct {
	MessageID      uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID      string    `gorm:"type:varchar(128);not null;index:idx_cm_session_id"`
	SubmissionUUID *string   `gorm:"type:char(36);index:idx_cm_submission_uuid"`
	Role           string    `gorm:"type:varchar(20);not null"` // user / assistant
	Intent         string    `gorm:"type:varchar(50)"`
	Agent          string    `gorm:"type:varchar(50)"`
	Content        string    `gorm:"type:text;not null"`
	ErrorDetail    string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_cm_created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ToJSON 将任意可序列化的值转换为 datatypes.JSON
func ToJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化为JSON失败: %w", err)
	}
	return datatypes.JSON(data), nil
}

// StringMapToJSON 将字符串map转换为 datatypes.JSON
func StringMapToJSON(m map[string]string) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	return ToJSON(m)
}
