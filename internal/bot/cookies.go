package bot

import (
	"fmt"
	"io"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Cookie exports are small; anything bigger than this isn't one.
const maxCookieFileSize = 1 << 20

func (b *Bot) handleCookies(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if !b.authz.IsAuthorized(user.ID, i.GuildID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}

	switch data.Options[0].Name {
	case "set":
		b.handleCookiesSet(s, i, user.ID)
	case "clear":
		if b.creds.Clear(user.ID) {
			replyEphemeral(s, i, "🧹 Cookies cleared.")
		} else {
			replyEphemeral(s, i, "You had no cookies saved.")
		}
	}
}

func (b *Bot) handleCookiesSet(s *discordgo.Session, i *discordgo.InteractionCreate, userID string) {
	data := i.ApplicationCommandData()
	sub := data.Options[0]

	var attachmentID string
	for _, opt := range sub.Options {
		if opt.Name == "file" {
			attachmentID = opt.Value.(string)
		}
	}
	if data.Resolved == nil {
		replyEphemeral(s, i, "Attach your Cookie-Editor JSON export.")
		return
	}
	attachment, ok := data.Resolved.Attachments[attachmentID]
	if !ok {
		replyEphemeral(s, i, "Attach your Cookie-Editor JSON export.")
		return
	}
	if attachment.Size > maxCookieFileSize {
		replyEphemeral(s, i, "That file is too large to be a cookie export.")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		log.Printf("[Bot] Failed to defer cookies response: %v", err)
		return
	}

	go func() {
		content := "✅ Cookies saved. Send a Crunchyroll link to download."

		resp, err := b.httpc.Get(attachment.URL)
		if err != nil {
			content = "❌ Couldn't fetch the attachment, try again."
		} else {
			defer resp.Body.Close()
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxCookieFileSize))
			if readErr != nil {
				content = "❌ Couldn't read the attachment, try again."
			} else if n, setErr := b.creds.Set(userID, raw); setErr != nil {
				content = "❌ That doesn't look like a Cookie-Editor JSON export."
			} else {
				content = fmt.Sprintf("✅ Saved %d cookies. Send a Crunchyroll link to download.", n)
			}
		}

		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	}()
}

func (b *Bot) handleWhoami(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)

	role := "👤 User (no access)"
	switch {
	case b.isAdmin(user.ID):
		role = "👑 Admin"
	case b.grants.Remaining(user.ID) != "":
		role = fmt.Sprintf("🔐 Sudo (%s)", b.grants.Remaining(user.ID))
	}

	hasCookies := "no"
	if _, ok := b.creds.Get(user.ID); ok {
		hasCookies = "yes"
	}

	replyEphemeral(s, i, fmt.Sprintf("User ID: `%s`\nRole: %s\nCookies saved: %s", user.ID, role, hasCookies))
}
