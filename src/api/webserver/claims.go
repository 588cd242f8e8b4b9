package webserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/api/data"
)

type Claims struct{ store *data.Store }

func NewClaims(store *data.Store) Claims { return Claims{store: store} }

func (h Claims) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	out, err := h.store.ListClaims(c.Request.Context(), data.ClaimFilter{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "Failed to fetch claims"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Claims) Get(c *gin.Context) {
	claim, err := h.store.GetClaim(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, data.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"err": "Failed to fetch claim"})
	default:
		c.JSON(http.StatusOK, claim)
	}
}
