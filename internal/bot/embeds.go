package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	colorProgress = 0x5865F2
	colorSuccess  = 0x57F287
	colorError    = 0xED4245
)

func progressBar(percent float64) string {
	filled := int(percent / 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", 10-filled)
}

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}

func progressEmbed(title string, progress float64, speed, eta, message string) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("%s %d%%", progressBar(progress), int(progress))

	details := []string{}
	if speed != "" {
		details = append(details, speed)
	}
	if eta != "" {
		details = append(details, "~"+eta+" left")
	}
	if len(details) > 0 {
		desc += " · " + strings.Join(details, " · ")
	}
	if message != "" {
		desc += "\n" + message
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       colorProgress,
		Footer:      &discordgo.MessageEmbedFooter{Text: "crunchbot"},
	}
}

func qualityPromptEmbed(title, series string, heights []int) *discordgo.MessageEmbed {
	desc := "Pick a quality for the download."
	if series != "" {
		desc = fmt.Sprintf("**Series:** %s\n%s", series, desc)
	}
	if len(heights) == 0 {
		desc += "\nNo video formats were found; audio may still work."
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       colorProgress,
		Footer:      &discordgo.MessageEmbedFooter{Text: "crunchbot"},
	}
}

func successEmbed(title, filename string, fileSize int64, quality string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{}
	if filename != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "File", Value: filename, Inline: true,
		})
	}
	if fileSize > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Size", Value: formatSize(fileSize), Inline: true,
		})
	}
	if quality != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Quality", Value: quality, Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  colorSuccess,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: "crunchbot"},
	}
}

func errorEmbed(title, message string) *discordgo.MessageEmbed {
	if message == "" {
		message = "Something went wrong"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       colorError,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Try again or check your cookies"},
	}
}

func requestEmbed(userID, displayName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Access request",
		Description: fmt.Sprintf("**%s** (`%s`) is asking for access.", displayName, userID),
		Color:       colorProgress,
		Footer:      &discordgo.MessageEmbedFooter{Text: "crunchbot access control"},
	}
}
