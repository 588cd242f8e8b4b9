package webserver

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/api/data"
	"github.com/stake-plus/crisistruth/src/factcheck"
	"github.com/stake-plus/crisistruth/src/logging"
)

const saveTimeout = 10 * time.Second

type Verify struct {
	store  *data.Store
	engine *factcheck.Engine
	log    *log.Logger
}

func NewVerify(store *data.Store, engine *factcheck.Engine) Verify {
	return Verify{store: store, engine: engine, log: logging.Component("verify")}
}

type verificationView struct {
	Status          factcheck.Status   `json:"status"`
	ConfidenceScore int                `json:"confidenceScore"`
	Summary         string             `json:"summary"`
	Sources         []factcheck.Source `json:"sources"`
	Evidence        factcheck.Evidence `json:"evidence"`
	ProcessingTime  int64              `json:"processingTime"`
	Method          factcheck.Method   `json:"method"`
	Claim           string             `json:"claim"`
	Tags            []string           `json:"tags"`
	CrisisTypes     []string           `json:"crisisTypes"`
	Location        string             `json:"location,omitempty"`
	Guidance        string             `json:"guidance"`
}

func (v Verify) Verify(c *gin.Context) {
	var req struct {
		ClaimText string `json:"claimText"`
		UserID    string `json:"userId"`
		CrisisID  string `json:"crisisId"`
		Category  string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	text := sanitizeText(req.ClaimText)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Claim text is required"})
		return
	}
	if utf8.RuneCountInString(text) > maxClaimLen {
		c.JSON(http.StatusBadRequest, gin.H{"err": "Claim text is too long"})
		return
	}

	userID := c.GetString(ctxUser)
	if userID == "" {
		userID = strings.TrimSpace(req.UserID)
	}
	tags := factcheck.ExtractTags(text)

	ctx := c.Request.Context()
	claim, err := v.store.CreateClaim(ctx, data.NewClaim{
		Text:     text,
		UserID:   userID,
		CrisisID: strings.TrimSpace(req.CrisisID),
		Category: strings.TrimSpace(req.Category),
		Tags:     tags,
	})
	if err != nil {
		v.log.Error("claim not stored", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "Failed to store claim"})
		return
	}

	res := v.engine.Verify(ctx, text)

	// The claim must leave the processing state even if the client is gone.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	_, err = v.store.SaveVerification(saveCtx, claim.ID, res)
	cancel()
	if err != nil {
		v.log.Error("verification not stored", "claim", claim.ID, "err", err)
	}

	crisisTypes := factcheck.DetectCrisisTypes(text)
	location, _ := factcheck.ExtractLocation(text)
	c.JSON(http.StatusOK, gin.H{
		"claimId": claim.ID,
		"verification": verificationView{
			Status:          res.Status,
			ConfidenceScore: res.ConfidenceScore,
			Summary:         res.Summary,
			Sources:         res.Sources,
			Evidence:        res.Evidence,
			ProcessingTime:  res.ProcessingTime.Milliseconds(),
			Method:          res.Method,
			Claim:           text,
			Tags:            tags,
			CrisisTypes:     crisisTypes,
			Location:        location,
			Guidance:        factcheck.PublicGuidance(res.Status, crisisTypes),
		},
	})
}
