package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/search"
	"go-easyapply-automation/internal/selector"
)

func main() {
	fmt.Println("🌐 Testing Browser Manager...")

	ctx := context.Background()

	//create playwright manager
	pm, err := browser.NewPlaywright(ctx, browser.LaunchOptions{Headless: false})
	if err != nil {
		log.Fatalf("Failed to create Playwright: %v", err)
	}
	defer pm.Close()
	fmt.Println("✅ Playwright started")

	//load cookies
	cookies, err := browser.LoadCookies(".cookies/cookies-linkedin.json")
	if err != nil {
		log.Printf("⚠️ No cookies loaded: %v", err)
	}
	fmt.Printf("✅ Loaded %d cookies\n", len(cookies))

	browserCtx, err := pm.NewContext(cookies, "")
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		log.Fatalf("Failed to create page: %v", err)
	}
	session := browser.NewSession(page, 30*time.Second)

	//open one search page and count cards through the locator sets
	nav := search.NewNavigator(session, selector.New(nil), rules.Default(), browser.Pacer{Base: time.Second}, nil)
	if err := nav.Open(ctx, search.Params{Keyword: "Software Internship", Location: "United States", EasyApplyOnly: true}); err != nil {
		log.Fatalf("Failed to open search: %v", err)
	}
	fmt.Printf("✅ Search page: %s\n", session.URL())

	shots := browser.NewScreenshotDebugger("", nil)
	if path, err := shots.Capture(session, "linkedin-search"); err == nil {
		fmt.Printf("📸 Screenshot saved: %s\n", path)
	}
	fmt.Println("✨ Test complete!")
}
