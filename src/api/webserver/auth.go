package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/api/data"
)

type Auth struct {
	store     *data.Store
	jwtSecret []byte
}

func NewAuth(store *data.Store, secret []byte) Auth {
	return Auth{store: store, jwtSecret: secret}
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	acct, err := a.store.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, data.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "err": "Invalid email or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "err": "An unexpected error occurred."})
		return
	}

	token, err := issueJWT(acct.Email, acct.Role, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userType": acct.Role, "token": token})
}
