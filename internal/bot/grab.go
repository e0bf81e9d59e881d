package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"crunchbot/internal/config"
	"crunchbot/internal/media"
	"crunchbot/internal/session"
	"crunchbot/internal/util"
)

func (b *Bot) handleGrab(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if !b.authz.IsAuthorized(user.ID, i.GuildID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	rawURL := ""
	height := 0
	audio := false
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "url":
			rawURL = opt.StringValue()
		case "quality":
			height, _ = strconv.Atoi(opt.StringValue())
		case "audio":
			audio = opt.BoolValue()
		}
	}

	if v := util.ValidateURL(rawURL); !v.Valid {
		replyEphemeral(s, i, v.Error)
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Printf("[Bot] Failed to defer grab response: %v", err)
		return
	}

	if audio || height > 0 {
		// Explicit quality in one shot skips the probe/selection flow.
		if audio {
			height = 0
		}
		cookies, _ := b.creds.Get(user.ID)
		d := media.DirectiveFor(rawURL, "crunchbot_"+time.Now().Format("20060102-150405"), height)
		go b.runDownload(s, i, d, cookies)
		return
	}

	go b.probeAndOffer(s, i, user.ID, rawURL)
}

// probeAndOffer is the first half of the two-phase flow: fetch metadata,
// cache a session for this user, and offer quality buttons.
func (b *Bot) probeAndOffer(s *discordgo.Session, i *discordgo.InteractionCreate, userID, url string) {
	editEmbed(s, i, progressEmbed("Fetching video info...", 0, "", "", url))

	cookies, _ := b.creds.Get(userID)
	cookieFile, cleanup, err := session.WriteCookieFile(config.TempDirs["cookies"], userID+"-probe", cookies)
	if err != nil {
		editEmbed(s, i, errorEmbed("Probe Failed", "Couldn't prepare cookies"))
		return
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), config.ProbeTimeout)
	defer cancel()

	info, err := media.Probe(ctx, url, cookieFile)
	if err != nil {
		editEmbed(s, i, errorEmbed("Probe Failed", media.ToUserError(err.Error())))
		return
	}

	b.sessions.Put(userID, session.Session{
		URL:       url,
		Info:      *info,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	})

	buttons := make([]discordgo.MessageComponent, 0, len(info.Heights)+1)
	for _, h := range info.Heights {
		buttons = append(buttons, discordgo.Button{
			Label:    fmt.Sprintf("%dp", h),
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("quality:%s:%d", userID, h),
		})
	}
	buttons = append(buttons, discordgo.Button{
		Label:    "Audio only",
		Style:    discordgo.SecondaryButton,
		CustomID: fmt.Sprintf("quality:%s:audio", userID),
	})

	embed := qualityPromptEmbed(info.Title, info.Series, info.Heights)
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	})
}

// handleQualityButton is the second half: consume the cached session and
// kick off the download with the chosen quality.
func (b *Bot) handleQualityButton(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 {
		return
	}
	owner, choice := parts[1], parts[2]

	presser := interactionUser(i)
	if presser.ID != owner {
		replyEphemeral(s, i, "Those buttons belong to someone else's download.")
		return
	}
	if !b.authz.IsAuthorized(presser.ID, i.GuildID) {
		replyEphemeral(s, i, msgUnauthorized)
		return
	}

	sess, err := b.sessions.Take(presser.ID)
	if err != nil {
		replyEphemeral(s, i, "That download request has expired. Send the link again.")
		return
	}

	height := 0
	if choice != "audio" {
		height, _ = strconv.Atoi(choice)
	}
	d := media.DirectiveFor(sess.URL, util.SanitizeFilename(sess.Info.Title), height)

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		log.Printf("[Bot] Failed to ack quality button: %v", err)
		return
	}

	go b.runDownload(s, i, d, sess.Cookies)
}

// runDownload drives one external download end to end: materialize the
// cookie file, call yt-dlp with retry, relay progress, attach or report
// the result, and clean everything up. No store lock is held here.
func (b *Bot) runDownload(s *discordgo.Session, i *discordgo.InteractionCreate, d media.Directive, cookies []session.Cookie) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DownloadTimeout)
	defer cancel()

	if err := b.dl.Acquire(ctx, 1); err != nil {
		editEmbed(s, i, errorEmbed("Download Failed", "Too many downloads in flight, try again shortly"))
		return
	}
	defer b.dl.Release(1)

	jobID := uuid.New().String()[:8]

	cookieFile, cleanup, err := session.WriteCookieFile(config.TempDirs["cookies"], jobID, cookies)
	if err != nil {
		editEmbed(s, i, errorEmbed("Download Failed", "Couldn't prepare cookies"))
		return
	}
	defer cleanup()

	editEmbed(s, i, progressEmbed("Downloading "+d.QualityLabel+"...", 0, "", "", d.OutputName))

	throttle := newProgressThrottle(2 * time.Second)
	onProgress := func(p media.Progress) {
		throttle.run(p.Percent, func() {
			editEmbed(s, i, progressEmbed("Downloading "+d.QualityLabel+"...", p.Percent, p.Speed, p.ETA, d.OutputName))
		})
	}

	path, err := media.DownloadWithRetry(ctx, d, cookieFile, config.TempDirs["downloads"], jobID, onProgress, nil)
	if err != nil {
		editEmbed(s, i, errorEmbed("Download Failed", media.ToUserError(err.Error())))
		return
	}
	defer os.Remove(path)

	info, err := os.Stat(path)
	if err != nil {
		editEmbed(s, i, errorEmbed("Download Failed", "Downloaded file went missing"))
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	fileName := fmt.Sprintf("%s.%s", d.OutputName, ext)

	if info.Size() > config.MaxUploadSize {
		editEmbed(s, i, errorEmbed("File Too Large",
			fmt.Sprintf("**%s** is %s, over the upload limit. Try a lower quality or audio only.", fileName, formatSize(info.Size()))))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		editEmbed(s, i, errorEmbed("Download Failed", "Couldn't read the downloaded file"))
		return
	}
	defer f.Close()

	editEmbed(s, i, progressEmbed("Uploading...", 100, "", "", fileName))
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{successEmbed("Downloaded", fileName, info.Size(), d.QualityLabel)},
		Components: &[]discordgo.MessageComponent{},
		Files: []*discordgo.File{
			{Name: fileName, Reader: f},
		},
	})
	if err != nil {
		log.Printf("[Bot] Upload failed for %s: %v", jobID, err)
		editEmbed(s, i, errorEmbed("Upload Failed", "The download finished but the upload didn't"))
		return
	}

	log.Printf("[Bot] %s delivered (%s, %s)", jobID, fileName, formatSize(info.Size()))
}

// progressThrottle serializes progress edits coming off the downloader's
// stdout and stderr readers and drops updates that land inside the
// interval. Terminal (100%) updates always go through.
type progressThrottle struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

func newProgressThrottle(interval time.Duration) *progressThrottle {
	return &progressThrottle{interval: interval}
}

func (pt *progressThrottle) run(percent float64, edit func()) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if time.Since(pt.last) < pt.interval && percent < 100 {
		return
	}
	pt.last = time.Now()
	edit()
}
