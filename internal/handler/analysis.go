package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/apex-career/backend/internal/model"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	svc *service.AnalysisService
}

func NewAnalysisHandler(svc *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// AnalyzeResume godoc
// @Summary Analyze a resume
// @Description Placeholder: echoes upload metadata and the extracted text length.
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Security CookieAuth
// @Param file formData file false "Resume file"
// @Param extracted_text formData string false "Client-side extracted text"
// @Success 200 {object} model.ResumeAnalysisResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/analysis/analyze-resume [post]
func (h *AnalysisHandler) AnalyzeResume(c *gin.Context) {
	var info *model.ResumeFileInfo
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, openErr := fh.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "unreadable file"})
			return
		}
		size, copyErr := io.Copy(io.Discard, f)
		_ = f.Close()
		if copyErr != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "unreadable file"})
			return
		}
		info = &model.ResumeFileInfo{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        size,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid multipart form"})
		return
	}

	resp := h.svc.AnalyzeResume(c.Request.Context(), GetAuthUser(c).ID, info, c.PostForm("extracted_text"))
	c.JSON(http.StatusOK, resp)
}

// SkillGap godoc
// @Summary Skill gap analysis
// @Tags analysis
// @Produce json
// @Security CookieAuth
// @Param target_role query string true "Desired role"
// @Success 200 {object} model.SkillGapResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/analysis/skill-gap-analysis [post]
func (h *AnalysisHandler) SkillGap(c *gin.Context) {
	resp, err := h.svc.SkillGap(c.Request.Context(), GetAuthUser(c).ID, c.Query("target_role"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ROI godoc
// @Summary ROI calculation
// @Tags analysis
// @Produce json
// @Security CookieAuth
// @Param investment_amount query number true "Cost of the career investment"
// @Param target_role query string true "Target role"
// @Success 200 {object} model.ROIResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/analysis/roi-calculation [post]
func (h *AnalysisHandler) ROI(c *gin.Context) {
	investment, err := strconv.ParseFloat(c.Query("investment_amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid investment_amount"})
		return
	}

	resp, err := h.svc.ROI(c.Request.Context(), GetAuthUser(c).ID, investment, c.Query("target_role"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
