package webserver

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/api/config"
	"github.com/stake-plus/crisistruth/src/api/data"
	"github.com/stake-plus/crisistruth/src/community"
	"github.com/stake-plus/crisistruth/src/factcheck"
	"github.com/stake-plus/crisistruth/src/realtime"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Config    config.Config
	Store     *data.Store
	Engine    *factcheck.Engine
	Votes     *community.Service
	Relay     *realtime.Relay
	Templates []data.CrisisTemplate
}

// New builds the gin engine with every route attached.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	attachRoutes(r, d)
	return r
}

func attachRoutes(r *gin.Engine, d Deps) {
	corsCfg := cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 || slices.Contains(corsCfg.AllowOrigins, "*") {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	secret := []byte(d.Config.JWTSecret)
	r.Use(OptionalJWT(secret))

	authH := NewAuth(d.Store, secret)
	verifyH := NewVerify(d.Store, d.Engine)
	voteH := NewVotes(d.Votes)
	claimH := NewClaims(d.Store)
	crisisH := NewCrises(d.Store, d.Templates)
	adminH := NewAdmin(d.Store)
	wsH := NewLive(d.Relay)

	limiter := NewRateLimiter(d.Config.VerifyRate, time.Minute)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/auth/login", authH.Login)

	r.POST("/verify", RateLimitMiddleware(limiter), verifyH.Verify)

	r.POST("/community-vote", voteH.Cast)
	r.GET("/community-vote", voteH.Summary)
	r.GET("/community-vote/comments", voteH.Comments)
	r.GET("/community-vote/history", voteH.History)

	r.GET("/claims", claimH.List)
	r.GET("/claims/:id", claimH.Get)

	r.GET("/crises", crisisH.List)
	r.POST("/crises", RequireJWT(), crisisH.Create)
	r.GET("/crises/templates", crisisH.Templates)

	r.GET("/ws", wsH.Serve)

	admin := r.Group("/admin")
	admin.Use(RequireJWT(), AdminOnly())
	{
		admin.GET("/stats", adminH.Stats)
	}
}
