package bot

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/semaphore"

	"crunchbot/internal/auth"
	"crunchbot/internal/config"
	"crunchbot/internal/session"
)

// Every denial reads the same regardless of reason: expired, never
// granted, and unlisted guild are indistinguishable to the caller.
const msgUnauthorized = "⚠️ You are not authorized to use this bot."

type Config struct {
	Token   string
	AppID   string
	AdminID string
}

type Deps struct {
	Grants      *auth.Grants
	Guilds      *auth.Guilds
	Approvals   *auth.Approvals
	Sessions    *session.Store
	Credentials *session.Credentials
}

type Bot struct {
	session   *discordgo.Session
	cfg       Config
	authz     *auth.Authorizer
	grants    *auth.Grants
	guilds    *auth.Guilds
	approvals *auth.Approvals
	sessions  *session.Store
	creds     *session.Credentials
	dl        *semaphore.Weighted
	httpc     *http.Client
	cmdIDs    []string
}

func New(cfg Config, d Deps) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		session:   s,
		cfg:       cfg,
		authz:     &auth.Authorizer{Grants: d.Grants, Guilds: d.Guilds},
		grants:    d.Grants,
		guilds:    d.Guilds,
		approvals: d.Approvals,
		sessions:  d.Sessions,
		creds:     d.Credentials,
		dl:        semaphore.NewWeighted(config.MaxConcurrentDownloads),
		httpc:     &http.Client{Timeout: 30 * time.Second},
	}

	s.AddHandler(b.handleInteraction)
	s.Identify.Intents = discordgo.IntentsGuilds

	return b, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}

	log.Printf("Bot logged in as %s", b.session.State.User.Username)

	for _, cmd := range b.commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(b.cfg.AppID, "", cmd)
		if err != nil {
			log.Printf("Failed to register command %s: %v", cmd.Name, err)
			continue
		}
		b.cmdIDs = append(b.cmdIDs, created.ID)
		log.Printf("Registered command: /%s", created.Name)
	}

	return nil
}

func (b *Bot) Stop() {
	for _, id := range b.cmdIDs {
		b.session.ApplicationCommandDelete(b.cfg.AppID, "", id)
	}
	b.session.Close()
}

func everywhere() (*[]discordgo.ApplicationIntegrationType, *[]discordgo.InteractionContextType) {
	return &[]discordgo.ApplicationIntegrationType{
			discordgo.ApplicationIntegrationGuildInstall,
			discordgo.ApplicationIntegrationUserInstall,
		}, &[]discordgo.InteractionContextType{
			discordgo.InteractionContextGuild,
			discordgo.InteractionContextBotDM,
			discordgo.InteractionContextPrivateChannel,
		}
}

func (b *Bot) commandDefinitions() []*discordgo.ApplicationCommand {
	integrations, contexts := everywhere()

	return []*discordgo.ApplicationCommand{
		{
			Name:             "grab",
			Description:      "Download a video (pick quality after, or pass it up front)",
			IntegrationTypes: integrations,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "The video URL to download",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "quality",
					Description: "Skip the quality menu",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "1080p", Value: "1080"},
						{Name: "720p", Value: "720"},
						{Name: "480p", Value: "480"},
						{Name: "360p", Value: "360"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "audio",
					Description: "Audio only",
					Required:    false,
				},
			},
		},
		{
			Name:             "request-access",
			Description:      "Ask the admin for access to this bot",
			IntegrationTypes: integrations,
			Contexts:         contexts,
		},
		{
			Name:             "grant",
			Description:      "Grant a user access (admin only)",
			IntegrationTypes: integrations,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Who to grant access to",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "e.g. 12h, 3d, 2w, 1m, 1y or permanent",
					Required:    true,
				},
			},
		},
		{
			Name:             "revoke",
			Description:      "Revoke a user's access (admin only)",
			IntegrationTypes: integrations,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Whose access to revoke",
					Required:    true,
				},
			},
		},
		{
			Name:             "grants",
			Description:      "List active grants (admin only)",
			IntegrationTypes: integrations,
			Contexts:         contexts,
		},
		{
			Name:        "authorize-server",
			Description: "Allow this server to use the bot (admin only)",
		},
		{
			Name:             "cookies",
			Description:      "Manage your Crunchyroll cookies",
			IntegrationTypes: integrations,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Upload a Cookie-Editor JSON export",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionAttachment,
							Name:        "file",
							Description: "cookies.json exported from Cookie-Editor",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Forget your saved cookies",
				},
			},
		},
		{
			Name:             "whoami",
			Description:      "Show your access level",
			IntegrationTypes: integrations,
			Contexts:         contexts,
		},
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "grab":
			b.handleGrab(s, i)
		case "request-access":
			b.handleRequestAccess(s, i)
		case "grant":
			b.handleGrant(s, i)
		case "revoke":
			b.handleRevoke(s, i)
		case "grants":
			b.handleGrants(s, i)
		case "authorize-server":
			b.handleAuthorizeServer(s, i)
		case "cookies":
			b.handleCookies(s, i)
		case "whoami":
			b.handleWhoami(s, i)
		}
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		switch {
		case strings.HasPrefix(customID, "quality:"):
			b.handleQualityButton(s, i, customID)
		case strings.HasPrefix(customID, "approve:"):
			b.handleApprovalButton(s, i, "approve", strings.TrimPrefix(customID, "approve:"))
		case strings.HasPrefix(customID, "deny:"):
			b.handleApprovalButton(s, i, "deny", strings.TrimPrefix(customID, "deny:"))
		}
	}
}

// interactionUser works for both guild interactions (Member) and DMs.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) isAdmin(userID string) bool {
	return b.cfg.AdminID != "" && userID == b.cfg.AdminID
}

func replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{},
	})
}

// logActivity mirrors admin-relevant events to the configured log
// channel, if any.
func (b *Bot) logActivity(format string, args ...any) {
	log.Printf("[Activity] "+format, args...)
	if config.LogChannelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSend(config.LogChannelID, "📋 "+fmt.Sprintf(format, args...)); err != nil {
		log.Printf("[Activity] Failed to post to log channel: %v", err)
	}
}
