package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type dateRequest struct {
	Date string `json:"date"`
}

type settingsView struct {
	Enabled             bool   `json:"enabled"`
	Timezone            string `json:"timezone"`
	TargetTime          string `json:"target_time"`
	GracePeriod         string `json:"grace_period"`
	FallbackWindow      string `json:"fallback_window"`
	NotificationTimeout string `json:"notification_timeout"`
	PromptCooldown      string `json:"prompt_cooldown"`
}

func (s *Server) CheckPrompt(c *gin.Context) {
	poll, err := parseOptionalBool(c.Query("poll"))
	if err != nil {
		AbortWithError(c, newValidationError("poll", "invalid_poll", "poll must be a boolean"))
		return
	}

	resp, err := s.autoCheckoutSvc.CheckPrompt(c.Request.Context(), domain.CheckPromptRequest{
		OperatorID: c.GetString(contextOperatorIDKey),
		Poll:       poll,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AckPrompt(c *gin.Context) {
	req, ok := bindDateRequest(c)
	if !ok {
		return
	}

	resp, err := s.autoCheckoutSvc.AckPromptShown(c.Request.Context(), domain.AckPromptRequest{
		OperatorID: c.GetString(contextOperatorIDKey),
		Date:       req.Date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmAutoCheckout(c *gin.Context) {
	req, ok := bindDateRequest(c)
	if !ok {
		return
	}

	resp, err := s.autoCheckoutSvc.ConfirmAction(c.Request.Context(), domain.ConfirmRequest{
		OperatorID: c.GetString(contextOperatorIDKey),
		Date:       req.Date,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAutoCheckoutStatus(c *gin.Context) {
	resp, err := s.autoCheckoutSvc.GetStatus(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAutoCheckoutSettings(c *gin.Context) {
	if s.settings == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	cfg := s.settings.Get()

	c.JSON(http.StatusOK, gin.H{"data": settingsView{
		Enabled:             cfg.Enabled,
		Timezone:            cfg.Timezone,
		TargetTime:          cfg.TargetTime,
		GracePeriod:         cfg.GracePeriod.String(),
		FallbackWindow:      cfg.FallbackWindow.String(),
		NotificationTimeout: cfg.NotificationTimeout.String(),
		PromptCooldown:      cfg.PromptCooldown.String(),
	}})
}

func (s *Server) ListExecutions(c *gin.Context) {
	var query domain.ListExecutionsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, domain.ErrInvalidLimit)
		return
	}

	resp, err := s.autoCheckoutSvc.ListExecutions(c.Request.Context(), domain.ListExecutionsRequest{
		Date:  strings.TrimSpace(query.Date),
		Limit: query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCheckoutLogs(c *gin.Context) {
	var query domain.ListCheckoutLogsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, domain.ErrInvalidLimit)
		return
	}

	resp, err := s.autoCheckoutSvc.ListCheckoutLogs(c.Request.Context(), domain.ListCheckoutLogsRequest{
		Date:    strings.TrimSpace(query.Date),
		Outcome: strings.TrimSpace(query.Outcome),
		Limit:   query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportCheckoutLogs(c *gin.Context) {
	buf, filename, err := s.exporter.Export(c.Request.Context(), strings.TrimSpace(c.Query("date")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) ResetAutoCheckout(c *gin.Context) {
	resp, err := s.autoCheckoutSvc.Reset(c.Request.Context(), domain.ResetRequest{
		OperatorID: c.GetString(contextOperatorIDKey),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RunFallback mirrors the one-shot binary: the body carries the tagged
// result and the status reflects success.
func (s *Server) RunFallback(c *gin.Context) {
	resp, err := s.autoCheckoutSvc.RunFallback(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusAccepted
	}
	s.log.Info("autocheckout.fallback.http",
		zap.String("action", string(resp.Action)),
		zap.Bool("success", resp.Success),
	)
	c.JSON(status, gin.H{"data": resp})
}

func bindDateRequest(c *gin.Context) (dateRequest, bool) {
	var req dateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return dateRequest{}, false
		}
	}
	req.Date = strings.TrimSpace(req.Date)
	return req, true
}

func parseOptionalBool(value string) (bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false, nil
	}
	return strconv.ParseBool(trimmed)
}
