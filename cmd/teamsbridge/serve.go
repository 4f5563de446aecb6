package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/adapter"
	"github.com/keepmind9/teamsbridge/internal/connector"
	"github.com/keepmind9/teamsbridge/internal/core"
	"github.com/keepmind9/teamsbridge/internal/logger"
	"github.com/keepmind9/teamsbridge/pkg/constants"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the Teams adapter",
		Long:  "Start the Teams adapter: listen for inbound activities and dispatch bot replies",
		Run: func(cmd *cobra.Command, args []string) {
			var config *core.Config
			var err error
			if configFile != "" {
				config, err = core.LoadConfig(configFile)
			} else {
				config, err = core.FromEnv()
			}
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			logConfig := logger.Config{
				Level:        config.Logging.Level,
				File:         config.Logging.File,
				MaxSize:      config.Logging.MaxSize,
				MaxBackups:   config.Logging.MaxBackups,
				MaxAge:       config.Logging.MaxAge,
				Compress:     config.Logging.Compress,
				EnableStdout: config.Logging.EnableStdout,
			}
			if err := logger.InitLogger(logConfig); err != nil {
				log.Fatalf("Failed to initialize logger: %v", err)
			}

			logger.WithFields(logrus.Fields{
				"bot_name":  config.Bot.Name,
				"app_id":    maskSecret(config.Bot.AppID),
				"app_type":  config.Bot.AppType,
				"tenant_id": config.Bot.TenantID,
				"port":      config.Server.Port,
			}).Info("starting-teamsbridge")

			// Credential exchange is out of scope here; the token provider
			// boundary takes whatever the deployment's auth collaborator
			// produces. BOT_ACCESS_TOKEN serves for emulator/dev setups.
			client := connector.NewClient(connector.StaticTokenProvider(os.Getenv("BOT_ACCESS_TOKEN")))

			identity := activity.BotIdentity{Name: config.Bot.Name, Alias: config.Bot.Alias}
			store := adapter.NewReferenceStore()
			dispatcher := newDispatcher(identity)
			bridge := adapter.New(client, dispatcher, store, adapter.Options{
				Identity:   identity,
				TenantID:   config.Bot.TenantID,
				ServiceURL: config.Bot.ServiceURL,
				AutoCreate: config.Bot.AutoCreateConversations,
			})
			dispatcher.Bind(bridge)

			server := adapter.NewServer(bridge, config.Server.Port)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			serverErrChan := make(chan error, 1)
			go func() {
				fmt.Printf("teamsbridge listening on :%d as @%s\n", config.Server.Port, config.Bot.Name)
				serverErrChan <- server.Run()
			}()

			select {
			case sig := <-sigChan:
				log.Printf("Received signal: %v, shutting down gracefully...", sig)
				ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			case err := <-serverErrChan:
				if err != nil {
					log.Fatalf("Server error: %v", err)
				}
			}

			log.Println("teamsbridge stopped")
		},
	}
)

// maskSecret masks sensitive information for logging
func maskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path (omit to configure from environment)")
}
