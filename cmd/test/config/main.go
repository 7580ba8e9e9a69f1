package main

import (
	"fmt"
	"log"

	"go-easyapply-automation/internal/config"
)

func main() {
	fmt.Println("🔧 Testing config loading...")
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Telegram enabled: %v (chat %d)\n", cfg.Telegram.Token != "", cfg.Telegram.ChatID)
	fmt.Printf("   Keywords: %v\n", cfg.Search.Keywords)
	fmt.Printf("   Location: %s\n", cfg.Search.Location)
	fmt.Printf("   Profile fields: %d\n", len(cfg.Profile.Fields))
	fmt.Printf("   Resume: %s\n", cfg.Profile.ResumePath)
	fmt.Printf("   Ledger: %s\n", cfg.Storage.DSN)
	fmt.Printf("   Cookies Path: %s\n", cfg.Browser.CookiesPath)
}
