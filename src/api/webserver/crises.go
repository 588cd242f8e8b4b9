package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/api/data"
)

type Crises struct {
	store     *data.Store
	templates []data.CrisisTemplate
}

func NewCrises(store *data.Store, templates []data.CrisisTemplate) Crises {
	return Crises{store: store, templates: templates}
}

func (h Crises) List(c *gin.Context) {
	out, err := h.store.ListCrises(c.Request.Context(), data.CrisisFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "Failed to fetch crises"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"crises": out})
}

func (h Crises) Create(c *gin.Context) {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Location    string   `json:"location"`
		Priority    string   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		Tags        []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	crisis, err := h.store.CreateCrisis(c.Request.Context(), data.NewCrisis{
		Title:       sanitizeText(req.Title),
		Description: sanitizeText(req.Description),
		Location:    sanitizeText(req.Location),
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	switch {
	case errors.Is(err, data.ErrInvalidCrisis):
		c.JSON(http.StatusBadRequest, gin.H{"err": "Title and location are required"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"err": "Failed to create crisis"})
	default:
		c.JSON(http.StatusCreated, crisis)
	}
}

func (h Crises) Templates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.templates})
}
