package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/piae/company-expenses/internal/core/events"
	"github.com/piae/company-expenses/internal/notifier"
	"github.com/piae/company-expenses/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage worker pools, currently the invitation email pool.`,
}

var emailWorkerCmd = &cobra.Command{
	Use:   "email",
	Short: "Start invitation email worker pool",
	Long:  `Start the email worker pool that delivers invitation emails`,
	Run: func(cmd *cobra.Command, args []string) {
		startEmailWorker()
	},
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Start event bus worker",
	Long:  `Start the event bus`,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	apiURL       string
	apiToken     string
)

func startEmailWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.L()

	emailConfig := notifier.Config{
		APIURL:       getStringFlag(apiURL, config.Email.APIURL),
		APIToken:     getStringFlag(apiToken, config.Email.APIToken),
		SenderEmail:  config.Email.SenderEmail,
		SenderName:   config.Email.SenderName,
		InviteURL:    config.Email.InviteURL,
		SendTimeout:  config.Email.SendTimeout,
		MaxWorkers:   getIntFlag(maxWorkers, config.Email.MaxWorkers),
		JobQueueSize: getIntFlag(jobQueueSize, config.Email.JobQueueSize),
	}

	lg.Info("starting email worker",
		"max_workers", emailConfig.MaxWorkers,
		"job_queue_size", emailConfig.JobQueueSize,
		"api_url", emailConfig.APIURL)

	client := notifier.NewClient(emailConfig, lg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("email worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	lg.Info("received signal, shutting down email worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		client.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("email worker pool shutdown complete")
	case <-ctx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}
}

func startEventWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.L()

	eventBus := events.NewEventBus(lg)

	eventBus.Subscribe("test.event", func(ctx context.Context, event events.Event) error {
		lg.Info("received test event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	lg.Info("event bus worker started. Waiting for events...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down event bus", "signal", sig)
	lg.Info("event bus shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	emailWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	emailWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	emailWorkerCmd.Flags().StringVar(&apiURL, "api-url", "", "Email API URL (overrides config)")
	emailWorkerCmd.Flags().StringVar(&apiToken, "api-token", "", "Email API token (overrides config)")

	workerCmd.AddCommand(emailWorkerCmd)
	workerCmd.AddCommand(eventWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
