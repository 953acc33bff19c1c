package prompt

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	"github.com/alanyang/promptledger/internal/transport/httperr"
)

// Register mounts the prompt registry endpoints on the given router group.
func Register(rg *gin.RouterGroup, svc *promptsvc.Service) {
	rg.POST("", createPrompt(svc))
	rg.GET("", listPrompts(svc))
	rg.GET("/:id", getPrompt(svc))
	rg.PATCH("/:id", updatePrompt(svc))
	rg.DELETE("/:id", deletePrompt(svc))
	rg.POST("/:id/versions", createVersion(svc))
	rg.GET("/:id/versions/:version", getVersion(svc))
	rg.POST("/:id/activate", activateVersion(svc))
}

// RegisterResolve mounts name resolution, kept apart from /prompts/:id.
func RegisterResolve(rg *gin.RouterGroup, svc *promptsvc.Service) {
	rg.GET("/:name", resolvePrompt(svc))
}

type createPromptReq struct {
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Content     string         `json:"content"`
	Parameters  map[string]any `json:"parameters"`
}

func createPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPromptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}

		d, err := svc.CreatePrompt(c.Request.Context(), promptsvc.CreateInput{
			Name:        req.Name,
			Description: req.Description,
			Content:     req.Content,
			Parameters:  req.Parameters,
		})
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

func listPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := domainprompt.ListFilters{Query: c.Query("q")}
		var ok bool
		if filters.Limit, ok = queryInt(c, "limit"); !ok {
			return
		}
		if filters.Offset, ok = queryInt(c, "offset"); !ok {
			return
		}

		prompts, err := svc.ListPrompts(c.Request.Context(), filters)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, prompts)
	}
}

func getPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		d, err := svc.GetPrompt(c.Request.Context(), id)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

type updatePromptReq struct {
	Description *string `json:"description"`
}

// updatePrompt replaces the description; null or an omitted field clears it.
func updatePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req updatePromptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		if _, err := svc.UpdatePromptMetadata(ctx, id, promptsvc.MetadataUpdate{Description: req.Description}); err != nil {
			httperr.Write(c, err)
			return
		}
		d, err := svc.GetPrompt(ctx, id)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func deletePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := svc.DeletePrompt(c.Request.Context(), id); err != nil {
			httperr.Write(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type createVersionReq struct {
	Content    string         `json:"content"`
	Parameters map[string]any `json:"parameters"`
}

func createVersion(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req createVersionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}

		v, err := svc.CreateVersion(c.Request.Context(), id, req.Content, req.Parameters)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

func getVersion(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		version, err := strconv.Atoi(c.Param("version"))
		if err != nil || version < 1 {
			httperr.BadRequest(c, "invalid version")
			return
		}

		v, err := svc.GetVersion(c.Request.Context(), id, version)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

type activateReq struct {
	Version int `json:"version" binding:"required,min=1"`
}

func activateVersion(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req activateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "version must be an integer >= 1")
			return
		}

		ctx := c.Request.Context()
		if _, err := svc.ActivateVersion(ctx, id, req.Version); err != nil {
			httperr.Write(c, err)
			return
		}
		d, err := svc.GetPrompt(ctx, id)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func resolvePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svc.ResolvePrompt(c.Request.Context(), c.Param("name"))
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
		httperr.BadRequest(c, "invalid prompt id")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter; absent means zero.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		httperr.BadRequest(c, "invalid "+key)
		return 0, false
	}
	return n, true
}
