package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"crunchbot/internal/auth"
)

func (b *Bot) handleGrant(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(interactionUser(i).ID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	data := i.ApplicationCommandData()
	var target *discordgo.User
	duration := ""
	for _, opt := range data.Options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "duration":
			duration = strings.TrimSpace(opt.StringValue())
		}
	}
	if target == nil {
		replyEphemeral(s, i, "Couldn't resolve that user.")
		return
	}

	info, err := b.grants.Grant(target.ID, duration)
	if err != nil {
		replyEphemeral(s, i, "❌ "+err.Error())
		return
	}

	replyEphemeral(s, i, fmt.Sprintf("✅ Granted **%s** access (%s).", target.Username, info.Remaining))
	b.logActivity("Granted %s (%s) access: %s", target.Username, target.ID, info.Remaining)

	// Best effort: the grant stands whether or not the DM lands.
	b.dmUser(target.ID, fmt.Sprintf("✅ You've been granted access to crunchbot (%s).", info.Remaining))
}

func (b *Bot) handleRevoke(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(interactionUser(i).ID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	data := i.ApplicationCommandData()
	var target *discordgo.User
	for _, opt := range data.Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}
	if target == nil {
		replyEphemeral(s, i, "Couldn't resolve that user.")
		return
	}

	if !b.grants.Revoke(target.ID) {
		replyEphemeral(s, i, "❌ That user has no revocable grant.")
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("🗑 Revoked **%s**'s access.", target.Username))
	b.logActivity("Revoked %s (%s)", target.Username, target.ID)
}

func (b *Bot) handleGrants(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(interactionUser(i).ID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	list := b.grants.List()
	if len(list) == 0 {
		replyEphemeral(s, i, "No sudo users.")
		return
	}

	lines := make([]string, 0, len(list))
	for _, g := range list {
		lines = append(lines, fmt.Sprintf("• `%s` — %s", g.UserID, g.Remaining))
	}
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Sudo users",
					Description: strings.Join(lines, "\n"),
					Color:       colorProgress,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) handleAuthorizeServer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(interactionUser(i).ID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}
	if i.GuildID == "" {
		replyEphemeral(s, i, "Run this inside the server you want to authorize.")
		return
	}

	if !b.guilds.Authorize(i.GuildID) {
		replyEphemeral(s, i, "This server is already authorized.")
		return
	}
	replyEphemeral(s, i, "✅ This server can now use the bot.")
	b.logActivity("Authorized guild %s", i.GuildID)
}

func (b *Bot) handleRequestAccess(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)

	// Requests only make sense in a direct conversation.
	if i.GuildID != "" {
		replyEphemeral(s, i, "DM me /request-access instead of asking in a server.")
		return
	}
	if b.isAdmin(user.ID) || b.grants.Allows(user.ID) {
		replyEphemeral(s, i, "You already have access.")
		return
	}
	if b.cfg.AdminID == "" {
		replyEphemeral(s, i, "No admin is configured for this bot.")
		return
	}

	displayName := user.Username
	if user.GlobalName != "" {
		displayName = user.GlobalName
	}
	b.approvals.Request(user.ID, displayName)

	ch, err := s.UserChannelCreate(b.cfg.AdminID)
	if err == nil {
		_, err = s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{requestEmbed(user.ID, displayName)},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Approve",
							Style:    discordgo.SuccessButton,
							CustomID: "approve:" + user.ID,
						},
						discordgo.Button{
							Label:    "Deny",
							Style:    discordgo.DangerButton,
							CustomID: "deny:" + user.ID,
						},
					},
				},
			},
		})
	}
	if err != nil {
		log.Printf("[Bot] Failed to notify admin of access request from %s: %v", user.ID, err)
	}

	replyEphemeral(s, i, "📨 Your request was sent to the admin. You'll hear back here.")
}

func (b *Bot) handleApprovalButton(s *discordgo.Session, i *discordgo.InteractionCreate, action, targetID string) {
	if !b.isAdmin(interactionUser(i).ID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	var req auth.PendingRequest
	var err error
	if action == "approve" {
		req, err = b.approvals.Approve(targetID)
	} else {
		req, err = b.approvals.Deny(targetID)
	}
	if err != nil {
		if errors.Is(err, auth.ErrNoSuchRequest) {
			b.updateApprovalMessage(s, i, "This request was already handled (or replaced).")
			return
		}
		b.updateApprovalMessage(s, i, "Something went wrong: "+err.Error())
		return
	}

	if action == "approve" {
		// Approval clears the request only. The grant is a separate,
		// duration-carrying step.
		b.updateApprovalMessage(s, i, fmt.Sprintf(
			"✅ Approved **%s** (`%s`). Finish with `/grant user:%s duration:<3d|permanent>`.",
			req.DisplayName, req.UserID, req.UserID))
		b.logActivity("Approved access request from %s (%s)", req.DisplayName, req.UserID)
		return
	}

	b.updateApprovalMessage(s, i, fmt.Sprintf("🚫 Denied **%s** (`%s`).", req.DisplayName, req.UserID))
	b.dmUser(req.UserID, "🚫 Your access request was denied.")
	b.logActivity("Denied access request from %s (%s)", req.DisplayName, req.UserID)
}

// updateApprovalMessage replaces the approve/deny prompt in place so the
// buttons can't be pressed twice.
func (b *Bot) updateApprovalMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		},
	})
}

func (b *Bot) dmUser(userID, content string) {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		log.Printf("[Bot] Failed to open DM with %s: %v", userID, err)
		return
	}
	if _, err := b.session.ChannelMessageSend(ch.ID, content); err != nil {
		log.Printf("[Bot] Failed to DM %s: %v", userID, err)
	}
}
