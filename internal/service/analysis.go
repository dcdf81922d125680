package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/apex-career/backend/internal/model"
	"github.com/google/uuid"
)

var ErrInvalidAnalysisRequest = errors.New("invalid analysis request")

// AnalysisService answers the analysis endpoints with fixed placeholder payloads.
type AnalysisService struct{}

func NewAnalysisService() *AnalysisService {
	return &AnalysisService{}
}

func (s *AnalysisService) AnalyzeResume(_ context.Context, userID uuid.UUID, file *model.ResumeFileInfo, extractedText string) *model.ResumeAnalysisResponse {
	return &model.ResumeAnalysisResponse{
		Message:             "Resume analysis endpoint - placeholder response",
		UserID:              userID,
		File:                file,
		ExtractedTextLength: len([]rune(extractedText)),
	}
}

func (s *AnalysisService) SkillGap(_ context.Context, userID uuid.UUID, targetRole string) (*model.SkillGapResponse, error) {
	targetRole = strings.TrimSpace(targetRole)
	if targetRole == "" {
		return nil, fmt.Errorf("%w: target_role is required", ErrInvalidAnalysisRequest)
	}
	return &model.SkillGapResponse{
		Message:   "Skill gap analysis for role: " + targetRole,
		UserID:    userID,
		SkillGaps: []map[string]any{},
	}, nil
}

func (s *AnalysisService) ROI(_ context.Context, userID uuid.UUID, investment float64, targetRole string) (*model.ROIResponse, error) {
	targetRole = strings.TrimSpace(targetRole)
	if targetRole == "" {
		return nil, fmt.Errorf("%w: target_role is required", ErrInvalidAnalysisRequest)
	}
	if math.IsNaN(investment) || math.IsInf(investment, 0) {
		return nil, fmt.Errorf("%w: investment_amount must be a finite number", ErrInvalidAnalysisRequest)
	}
	return &model.ROIResponse{
		Message:    "ROI calculation endpoint - to be implemented",
		UserID:     userID,
		Investment: investment,
		TargetRole: targetRole,
		ROI:        map[string]any{},
	}, nil
}
