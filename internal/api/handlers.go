package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sempower/adapters/designfile"
	"sempower/domain/core"
	domainPower "sempower/domain/power"
	apperrors "sempower/internal/errors"
	"sempower/internal/power"
)

// Optional fields are pointers; nil means the configured default.
type powerRequest struct {
	Ncp   float64  `json:"ncp"`
	DF    int      `json:"df"`
	Alpha *float64 `json:"alpha"`
}

type multiplierRequest struct {
	Ncp         float64  `json:"ncp"`
	TargetPower *float64 `json:"target_power"`
	DF          int      `json:"df"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) criticalValue(c *gin.Context) {
	alpha := s.power.Calculator().Alpha()
	if raw := c.Query("alpha"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.respondError(c, core.NewInvalidArgumentError("alpha", "not a number: %q", raw))
			return
		}
		alpha = v
	}
	df, err := strconv.Atoi(c.Query("df"))
	if err != nil {
		s.respondError(c, core.NewInvalidArgumentError("df", "must be an integer, got %q", c.Query("df")))
		return
	}

	defer s.metrics.observe("critical_value", time.Now())
	crit, err := power.CriticalValue(alpha, df)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alpha": alpha, "df": df, "critical_value": crit})
}

func (s *Server) computePower(c *gin.Context) {
	var req powerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.InvalidInput(err.Error()))
		return
	}

	defer s.metrics.observe("power", time.Now())
	calc := s.power.Calculator()
	result, err := calc.Evaluate(domainPower.PowerQuery{Alpha: calc.AlphaOrDefault(req.Alpha), DegreesOfFreedom: req.DF, Ncp: req.Ncp})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) multiplier(c *gin.Context) {
	var req multiplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.InvalidInput(err.Error()))
		return
	}
	target := s.targetPower
	if req.TargetPower != nil {
		target = *req.TargetPower
	}

	defer s.metrics.observe("multiplier", time.Now())
	m, err := power.SampleSizeMultiplier(req.Ncp, target, req.DF)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ncp": req.Ncp, "target_power": target, "df": req.DF, "multiplier": m})
}

func (s *Server) analyzeDesign(c *gin.Context) {
	var doc designfile.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.respondError(c, apperrors.InvalidInput(err.Error()))
		return
	}
	design, err := doc.Resolve()
	if err != nil {
		s.respondError(c, err)
		return
	}

	defer s.metrics.observe("analyze", time.Now())
	analysis, err := s.power.Analyze(c.Request.Context(), design, doc.Alpha)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) planDesign(c *gin.Context) {
	var doc designfile.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.respondError(c, apperrors.InvalidInput(err.Error()))
		return
	}
	design, err := doc.Resolve()
	if err != nil {
		s.respondError(c, err)
		return
	}

	defer s.metrics.observe("plan", time.Now())
	plan, err := s.power.Plan(c.Request.Context(), design, doc.Alpha, doc.TargetPower)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		s.logger.Debug("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperrors.GetCode(err)})
}
