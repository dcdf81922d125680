package model

import "github.com/google/uuid"

type ResumeFileInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type ResumeAnalysisResponse struct {
	Message             string          `json:"message"`
	UserID              uuid.UUID       `json:"user_id"`
	File                *ResumeFileInfo `json:"file"`
	ExtractedTextLength int             `json:"extracted_text_length"`
}

type SkillGapResponse struct {
	Message   string           `json:"message"`
	UserID    uuid.UUID        `json:"user_id"`
	SkillGaps []map[string]any `json:"skill_gaps"`
}

type ROIResponse struct {
	Message    string         `json:"message"`
	UserID     uuid.UUID      `json:"user_id"`
	Investment float64        `json:"investment"`
	TargetRole string         `json:"target_role"`
	ROI        map[string]any `json:"roi"`
}
