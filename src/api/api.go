package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	aicore "github.com/stake-plus/crisistruth/src/ai/core"
	_ "github.com/stake-plus/crisistruth/src/ai/providers"
	"github.com/stake-plus/crisistruth/src/api/config"
	"github.com/stake-plus/crisistruth/src/api/data"
	"github.com/stake-plus/crisistruth/src/api/webserver"
	"github.com/stake-plus/crisistruth/src/community"
	"github.com/stake-plus/crisistruth/src/discord"
	"github.com/stake-plus/crisistruth/src/factcheck"
	"github.com/stake-plus/crisistruth/src/logging"
	"github.com/stake-plus/crisistruth/src/realtime"
)

func main() {
	cfg := config.Load()
	logging.Init(os.Stderr, cfg.LogLevel)
	log := logging.Component("api")
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := data.MustOpen(cfg.DBDriver, cfg.DBDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatal("migrate", "err", err)
	}
	if err := data.LoadSettings(db); err != nil {
		log.Warn("settings not loaded", "err", err)
	} else {
		cfg.Overlay(data.GetSetting)
	}
	if err := data.SeedAccounts(ctx, db); err != nil {
		log.Fatal("seed accounts", "err", err)
	}
	templates, err := data.LoadCrisisTemplates(cfg.CrisisSeedFile)
	if err != nil {
		log.Fatal("crisis templates", "err", err)
	}
	if err := data.SeedCrises(ctx, db, templates); err != nil {
		log.Warn("crises not seeded", "err", err)
	}

	var feed realtime.Feed
	if cfg.RedisURL != "" {
		feed = realtime.NewRedisSource(data.MustRedis(cfg.RedisURL))
		log.Info("change feed", "backend", "redis")
	} else {
		feed = realtime.NewMemorySource()
		log.Info("change feed", "backend", "memory")
	}

	store := data.NewStore(db, feed)
	votes := community.NewService(community.NewGormStore(db), community.WithPublisher(feed))
	relay := realtime.NewRelay(feed,
		realtime.WithCrisisStats(store.CrisisStats),
		realtime.WithVoteStats(func(ctx context.Context, claimID string) (any, error) {
			return votes.GetStats(ctx, claimID, ""), nil
		}),
	)
	defer relay.Close()

	engineOpts := []factcheck.Option{factcheck.WithTimeout(cfg.AITimeout)}
	aiCfg := cfg.AIFactory()
	client, err := aicore.NewClient(aiCfg)
	switch {
	case errors.Is(err, aicore.ErrNotConfigured):
		log.Warn("completion service not configured, using keyword heuristic", "provider", aiCfg.Provider)
	case err != nil:
		log.Fatal("completion client", "provider", aiCfg.Provider, "err", err)
	default:
		engineOpts = append(engineOpts, factcheck.WithClient(client))
		log.Info("completion service", "provider", client.Name(), "model", aiCfg.Model)
	}
	engine := factcheck.NewEngine(engineOpts...)

	if cfg.DiscordWebhookURL != "" {
		alerter, err := discord.NewAlerter(cfg.DiscordWebhookURL, cfg.PublicURL, func(ctx context.Context, id string) (string, error) {
			c, err := store.GetClaim(ctx, id)
			return c.Text, err
		})
		if err != nil {
			log.Warn("discord alerts disabled", "err", err)
		} else {
			go func() {
				if err := alerter.Run(ctx, relay); err != nil {
					log.Error("discord alerts stopped", "err", err)
				}
			}()
		}
	}

	router := webserver.New(webserver.Deps{
		Config:    cfg,
		Store:     store,
		Engine:    engine,
		Votes:     votes,
		Relay:     relay,
		Templates: templates,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			reloader, rerr := webserver.NewTLSReloader(ctx, cfg.TLSCert, cfg.TLSKey)
			if rerr != nil {
				log.Fatal("tls", "err", rerr)
			}
			httpSrv.TLSConfig = reloader.Config()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http", "err", err)
		}
	}()
	log.Info("CrisisTruth API listening", "port", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
