package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"crunchbot/internal/auth"
	"crunchbot/internal/bot"
	"crunchbot/internal/config"
	"crunchbot/internal/server"
	"crunchbot/internal/session"
	"crunchbot/internal/util"
)

func main() {
	godotenv.Load()
	config.Load()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("DISCORD_TOKEN is required")
	}
	appID := os.Getenv("DISCORD_APP_ID")
	if appID == "" {
		log.Fatal("DISCORD_APP_ID is required")
	}
	if config.AdminUserID == "" {
		log.Fatal("ADMIN_USER_ID is required")
	}

	util.ClearTempDirs()
	util.StartCleanupInterval()

	grants, err := auth.NewGrants(config.AdminUserID, filepath.Join(config.DataDir, config.GrantsFile))
	if err != nil {
		log.Fatalf("Failed to load grants: %v", err)
	}
	guilds, err := auth.NewGuilds(filepath.Join(config.DataDir, config.GuildsFile))
	if err != nil {
		log.Fatalf("Failed to load authorized guilds: %v", err)
	}
	approvals := auth.NewApprovals()
	sessions := session.NewStore()
	creds := session.NewCredentials()

	b, err := bot.New(bot.Config{
		Token:   token,
		AppID:   appID,
		AdminID: config.AdminUserID,
	}, bot.Deps{
		Grants:      grants,
		Guilds:      guilds,
		Approvals:   approvals,
		Sessions:    sessions,
		Credentials: creds,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	srv := server.New(func() server.Stats {
		return server.Stats{
			Grants:   grants.Count(),
			Guilds:   guilds.Count(),
			Pending:  approvals.Count(),
			Sessions: sessions.Count(),
			Cookies:  creds.Count(),
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Server] Ops server stopped: %v", err)
		}
	}()

	server.PrintBanner()
	fmt.Println("Bot is running. Press Ctrl+C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down bot...")
	b.Stop()
	srv.Close()
	fmt.Println("Bot stopped.")
}
