package webserver

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/api/data"
	"github.com/stake-plus/crisistruth/src/logging"
)

type Admin struct {
	store *data.Store
	log   *log.Logger
}

func NewAdmin(store *data.Store) Admin {
	return Admin{store: store, log: logging.Component("admin")}
}

func (a Admin) Stats(c *gin.Context) {
	st, err := a.store.AdminStats(c.Request.Context())
	if err != nil {
		a.log.Error("admin stats", "user", c.GetString(ctxUser), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}
