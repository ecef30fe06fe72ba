package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tokflow/internal/agent"
	"tokflow/internal/api/handlers"
	"tokflow/internal/api/routes"
	"tokflow/internal/bridge"
	"tokflow/internal/config"
	"tokflow/internal/coordinator"
	"tokflow/internal/services"
	"tokflow/pkg/auth"
	"tokflow/pkg/chrome"
	"tokflow/pkg/clock"
	"tokflow/pkg/database"

	"github.com/chromedp/chromedp"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)
	handlers.SetJWTExpire(cfg.JWT.ExpireTime)

	// Initialize database
	if err := database.InitDatabase(cfg); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Start the automation browser on the upload page
	manager := chrome.NewManager(cfg.Chrome.DebugPort, cfg.Chrome.HeadlessMode, cfg.Chrome.BinPath)
	port, err := manager.StartBrowser("agent", cfg.Automation.UploadURL)
	if err != nil {
		log.Fatal("Failed to start automation browser:", err)
	}

	tabCtx, tabCancel, err := chrome.ConnectPage(context.Background(), manager, port, "")
	if err != nil {
		manager.CleanupAll()
		log.Fatal("Failed to attach to the upload tab:", err)
	}
	log.Println("✅ Attached to the upload tab")

	clk := clock.New()
	services.InitEvents()

	markers := coordinator.NewDBMarkerStore(database.DB)
	relay := coordinator.NewFetchRelay()
	webhook := coordinator.NewWebhookNotifier(cfg.Automation.WebhookURL, markers, clk)
	notifier := services.NewSuccessNotifier(webhook, clk)

	pageAgent := agent.New(agent.NewDevtoolsPage(tabCtx), clk, relay, notifier, markers)
	pageAgent.RecoverFromRedirect(context.Background())

	// The companion app gets its own tab when configured; without it
	// the identity bridge answers negatively.
	var bridgeTab context.Context
	if cfg.Automation.CompanionAppURL != "" {
		companionCtx, _ := chromedp.NewContext(tabCtx)
		if err := chromedp.Run(companionCtx, chromedp.Navigate(cfg.Automation.CompanionAppURL)); err != nil {
			log.Printf("⚠️ Failed to open companion app tab: %v", err)
		} else {
			bridgeTab = companionCtx
			log.Println("✅ Companion app tab opened")
		}
	}
	identityBridge := bridge.New(bridge.NewDevtoolsPage(bridgeTab))

	cookieBroker := coordinator.NewDevtoolsCookieBroker(tabCtx)
	windows := chrome.NewWindows(manager, cfg.Automation.PanelURL)
	coord := coordinator.New(pageAgent, identityBridge, relay, cookieBroker, windows, clk)

	handlers.InitHandlers(coord)
	services.InitRunner(coord, clk)

	// Initialize scheduler service
	if err := services.InitScheduler(); err != nil {
		log.Fatal("Failed to initialize scheduler:", err)
	}

	// Initialize presence poller
	services.InitPresence(coord, cfg.Automation.PresencePoll)

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize router
	router := routes.SetupRoutes(cfg)

	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down server...")

		if services.GlobalScheduler != nil {
			services.GlobalScheduler.Stop()
		}
		if services.GlobalPresence != nil {
			services.GlobalPresence.Stop()
		}

		tabCancel()
		manager.CleanupAll()

		log.Println("Server shutdown complete")
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
