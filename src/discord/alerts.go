package discord

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/stake-plus/crisistruth/src/logging"
	"github.com/stake-plus/crisistruth/src/realtime"
)

const (
	alertQueueSize = 64
	maxClaimChars  = 300
	colorDisputed  = 0xE03131
)

// ClaimLookup returns the text of a claim.
type ClaimLookup func(ctx context.Context, claimID string) (string, error)

type webhookSender interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Alerter posts disputed verdicts to a Discord webhook so moderators can
// react to misinformation while it spreads.
type Alerter struct {
	sender  webhookSender
	id      string
	token   string
	lookup  ClaimLookup
	baseURL string
	queue   chan realtime.VerificationUpdate
	log     *log.Logger
}

// NewAlerter builds an alerter for webhookURL. baseURL, when set, is used to
// link each alert to the claim page.
func NewAlerter(webhookURL, baseURL string, lookup ClaimLookup) (*Alerter, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return newAlerter(s, id, token, baseURL, lookup), nil
}

func newAlerter(sender webhookSender, id, token, baseURL string, lookup ClaimLookup) *Alerter {
	return &Alerter{
		sender:  sender,
		id:      id,
		token:   token,
		lookup:  lookup,
		baseURL: strings.TrimRight(baseURL, "/"),
		queue:   make(chan realtime.VerificationUpdate, alertQueueSize),
		log:     logging.Component("discord"),
	}
}

// Run subscribes to new verifications and delivers alerts until ctx ends.
func (a *Alerter) Run(ctx context.Context, relay *realtime.Relay) error {
	unsub, err := relay.Subscribe("verifications", a.enqueue)
	if err != nil {
		return fmt.Errorf("discord alerts: %w", err)
	}
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd := <-a.queue:
			if err := a.send(ctx, upd); err != nil {
				a.log.Warn("alert not delivered", "claim", upd.ClaimID, "err", err)
			}
		}
	}
}

func (a *Alerter) enqueue(u realtime.Update) {
	upd, ok := u.Payload.(realtime.VerificationUpdate)
	if !ok || upd.Status != "disputed" {
		return
	}
	select {
	case a.queue <- upd:
	default:
		a.log.Warn("alert queue full, dropping", "claim", upd.ClaimID)
	}
}

func (a *Alerter) send(ctx context.Context, upd realtime.VerificationUpdate) error {
	text, err := a.lookup(ctx, upd.ClaimID)
	if err != nil {
		return fmt.Errorf("lookup claim: %w", err)
	}
	_, err = a.sender.WebhookExecute(a.id, a.token, false, a.render(upd, text))
	return err
}

func (a *Alerter) render(upd realtime.VerificationUpdate, claimText string) *discordgo.WebhookParams {
	if utf8.RuneCountInString(claimText) > maxClaimChars {
		claimText = string([]rune(claimText)[:maxClaimChars]) + "…"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Disputed claim",
		Description: WrapURLsNoEmbed(claimText),
		Color:       colorDisputed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Confidence", Value: fmt.Sprintf("%d%%", upd.ConfidenceScore), Inline: true},
			{Name: "Claim", Value: upd.ClaimID, Inline: true},
		},
		Timestamp: upd.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.baseURL != "" {
		embed.URL = a.baseURL + "/claims/" + upd.ClaimID
	}
	return &discordgo.WebhookParams{
		Username:        "CrisisTruth",
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}
