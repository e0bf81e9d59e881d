// Package middleware holds the ops server's HTTP middleware: CORS from
// an optional origins file and a per-IP rate limiter.
package middleware

import (
	"bufio"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/cors"
)

const corsOriginsFile = "cors-origins.txt"

func LoadCORS() func(http.Handler) http.Handler {
	origins := loadCORSOrigins()

	if len(origins) > 0 {
		log.Printf("✓ Loaded %d CORS origins from %s", len(origins), corsOriginsFile)
		return cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           86400,
		})
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

func loadCORSOrigins() []string {
	f, err := os.Open(corsOriginsFile)
	if err != nil {
		return nil
	}
	defer f.Close()

	var origins []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			origins = append(origins, line)
		}
	}
	return origins
}
