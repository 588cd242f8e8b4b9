package webserver

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/community"
)

type Votes struct{ svc *community.Service }

func NewVotes(svc *community.Service) Votes { return Votes{svc: svc} }

func (v Votes) Cast(c *gin.Context) {
	var req struct {
		ClaimID string `json:"claimId"`
		UserID  string `json:"userId"`
		Vote    string `json:"vote"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	userID := c.GetString(ctxUser)
	if userID == "" {
		userID = strings.TrimSpace(req.UserID)
	}
	claimID := strings.TrimSpace(req.ClaimID)
	if claimID == "" || userID == "" || strings.TrimSpace(req.Vote) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Missing required fields"})
		return
	}
	choice, err := community.ParseChoice(req.Vote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Invalid vote value"})
		return
	}
	comment := sanitizeText(req.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Comment is too long"})
		return
	}

	ctx := c.Request.Context()
	res := v.svc.SubmitVote(ctx, claimID, userID, choice, comment)
	if !res.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"err": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": v.svc.GetStats(ctx, claimID, userID)})
}

func (v Votes) Summary(c *gin.Context) {
	claimID := strings.TrimSpace(c.Query("claimId"))
	if claimID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Missing claimId parameter"})
		return
	}
	userID := c.Query("userId")
	if userID == "" {
		userID = c.GetString(ctxUser)
	}
	c.JSON(http.StatusOK, gin.H{"stats": v.svc.GetStats(c.Request.Context(), claimID, userID)})
}

func (v Votes) Comments(c *gin.Context) {
	claimID := strings.TrimSpace(c.Query("claimId"))
	if claimID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Missing claimId parameter"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	c.JSON(http.StatusOK, gin.H{"comments": v.svc.Comments(c.Request.Context(), claimID, limit)})
}

func (v Votes) History(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = c.GetString(ctxUser)
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Missing userId parameter"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	c.JSON(http.StatusOK, gin.H{"votes": v.svc.UserVotes(c.Request.Context(), userID, limit)})
}
