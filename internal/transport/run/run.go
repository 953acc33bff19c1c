package run

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainrun "github.com/alanyang/promptledger/internal/domain/run"
	runsvc "github.com/alanyang/promptledger/internal/service/run"
	"github.com/alanyang/promptledger/internal/transport/httperr"
)

// Register mounts the run ledger endpoints. The start/succeed/fail callbacks
// are meant for the execution worker.
func Register(rg *gin.RouterGroup, svc *runsvc.Service) {
	rg.POST("", createRun(svc))
	rg.GET("", listRuns(svc))
	rg.GET("/:id", getRun(svc))
	rg.POST("/:id/start", markRunning(svc))
	rg.POST("/:id/succeed", markSucceeded(svc))
	rg.POST("/:id/fail", markFailed(svc))
}

type createRunReq struct {
	PromptName string         `json:"prompt_name"`
	Input      map[string]any `json:"input"`
}

func createRun(svc *runsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRunReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		r, err := svc.CreateRun(c.Request.Context(), req.PromptName, req.Input)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusCreated, r)
	}
}

func listRuns(svc *runsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters domainrun.ListFilters
		if raw := c.Query("prompt_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				httperr.BadRequest(c, "invalid prompt_id")
				return
			}
			filters.PromptID = &id
		}
		for key, dst := range map[string]*int{"limit": &filters.Limit, "offset": &filters.Offset} {
			raw := c.Query(key)
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				httperr.BadRequest(c, "invalid "+key)
				return
			}
			*dst = n
		}

		runs, err := svc.ListRuns(c.Request.Context(), filters)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}

func getRun(svc *runsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		r, err := svc.GetRun(c.Request.Context(), id)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func markRunning(svc *runsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		r, err := svc.MarkRunning(c.Request.Context(), id)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

type succeedReq struct {
	Output string `json:"output"`
}

func markSucceeded(svc *runsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req succeedReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		r, err := svc.MarkSucceeded(c.Request.Context(), id, req.Output)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

type failReq struct {
	Error string `json:"error"`
}

func markFailed(svc *runsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req failReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		r, err := svc.MarkFailed(c.Request.Context(), id, req.Error)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.BadRequest(c, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}
