package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"klinefetch/internal/tools"

	"github.com/gin-gonic/gin"
)

// Router maps /api routes onto the tool layer. Tool failures are reported in
// the envelope with 200; only malformed requests get 400.
type Router struct {
	tools *tools.Service
}

func NewRouter(svc *tools.Service) *Router {
	return &Router{tools: svc}
}

func (r *Router) Register(group *gin.RouterGroup) {
	group.GET("/ohlcv", r.handleOHLCV)
	group.GET("/symbols", r.handleSymbols)
	group.GET("/analysis", r.handleAnalysis)
	group.POST("/overview", r.handleOverview)
	group.GET("/info", r.handleInfo)
}

func (r *Router) handleOHLCV(c *gin.Context) {
	var req tools.OHLCVRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.tools.FetchHistoricalOHLCV(c.Request.Context(), req))
}

func (r *Router) handleSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, r.tools.TradingSymbols(c.Request.Context(), c.Query("category")))
}

func (r *Router) handleAnalysis(c *gin.Context) {
	days := 0
	if raw := strings.TrimSpace(c.Query("days_back")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "days_back must be a positive integer"})
			return
		}
		days = n
	}
	c.JSON(http.StatusOK, r.tools.AnalyzePriceMovement(
		c.Request.Context(),
		c.Query("symbol"),
		c.Query("interval"),
		days,
		c.Query("category"),
	))
}

type overviewRequest struct {
	Symbols  []string `json:"symbols"`
	Category string   `json:"category"`
	Interval string   `json:"interval"`
}

func (r *Router) handleOverview(c *gin.Context) {
	var req overviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, r.tools.MarketOverview(c.Request.Context(), req.Symbols, req.Category, req.Interval))
}

func (r *Router) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, r.tools.Info())
}
