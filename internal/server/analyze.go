package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

type analyzeRequest struct {
	Users    []optdomain.UserRecord `json:"users"`
	Strategy string                 `json:"strategy"`
	RuleSet  *optdomain.RuleSet     `json:"rule_set,omitempty"`
}

type compareRequest struct {
	Users   []optdomain.UserRecord `json:"users"`
	RuleSet *optdomain.RuleSet     `json:"rule_set,omitempty"`
}

func (s *Server) GetStrategyRules(c *gin.Context) {
	strategy, err := optdomain.ParseStrategy(c.Param("strategy"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("strategy", string(strategy))

	rules, err := s.optimizer.RuleSet(strategy)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (s *Server) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	strategy, err := optdomain.ParseStrategy(req.Strategy)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("strategy", string(strategy))

	resp, err := s.optimizer.Analyze(c.Request.Context(), optdomain.AnalyzeRequest{
		Users:    req.Users,
		Strategy: strategy,
		RuleSet:  req.RuleSet,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	stats, err := s.optimizer.Compare(c.Request.Context(), optdomain.CompareRequest{
		Users:         req.Users,
		CustomRuleSet: req.RuleSet,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
