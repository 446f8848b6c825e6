package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// EmailJob is one invite email waiting for a worker.
type EmailJob struct {
	InvitationID  string
	Recipient     string
	Token         string
	WorkplaceName string
	Resend        bool
}

type Worker struct {
	ID         int
	WorkerPool chan chan EmailJob
	JobChannel chan EmailJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan EmailJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan EmailJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(EmailJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing email job", "worker_id", w.ID, "invitation_id", job.InvitationID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Client sends invitation emails through an HTTP email API using a fixed
// worker pool. Enqueue never blocks a request; a full queue drops the job
// with a log line because invitation email is best-effort.
type Client struct {
	apiURL      string
	apiToken    string
	senderEmail string
	senderName  string
	inviteURL   string
	sendTimeout time.Duration
	logger      *slog.Logger

	jobQueue   chan EmailJob
	workerPool chan chan EmailJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once

	httpClient *http.Client
}

type Config struct {
	APIURL       string
	APIToken     string
	SenderEmail  string
	SenderName   string
	InviteURL    string
	SendTimeout  time.Duration
	MaxWorkers   int
	JobQueueSize int
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	sendTimeout := config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	client := &Client{
		apiURL:      config.APIURL,
		apiToken:    config.APIToken,
		senderEmail: config.SenderEmail,
		senderName:  config.SenderName,
		inviteURL:   config.InviteURL,
		sendTimeout: sendTimeout,
		logger:      logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan EmailJob, jobQueueSize),
		workerPool: make(chan chan EmailJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,

		httpClient: &http.Client{Timeout: sendTimeout},
	}

	client.startWorkerPool()

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processEmailJob)
		}

		go c.dispatch()

		c.logger.Info("email worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	defer c.wg.Done()
	c.wg.Add(1)

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					c.logger.Info("dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down email client")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("email client shutdown complete")
}

// Enqueue queues an invite email for delivery.
func (c *Client) Enqueue(job EmailJob) {
	select {
	case c.jobQueue <- job:
		c.logger.Info("invitation email queued",
			"invitation_id", job.InvitationID,
			"queue_length", len(c.jobQueue))
	default:
		c.logger.Warn("email queue full, dropping invitation email",
			"invitation_id", job.InvitationID,
			"queue_capacity", cap(c.jobQueue))
	}
}

func (c *Client) processEmailJob(job EmailJob) {
	if err := c.sendInviteEmail(job); err != nil {
		c.logger.Error("failed to send invitation email",
			"invitation_id", job.InvitationID,
			"error", err)
		return
	}
	c.logger.Info("invitation email sent",
		"invitation_id", job.InvitationID)
}

func (c *Client) sendInviteEmail(job EmailJob) error {
	subject := "You have been invited"
	if job.WorkplaceName != "" {
		subject = fmt.Sprintf("You have been invited to join %s", job.WorkplaceName)
	}
	if job.Resend {
		subject = "Reminder: " + subject
	}

	link := fmt.Sprintf("%s?token=%s", c.inviteURL, job.Token)
	payload := map[string]interface{}{
		"from": map[string]string{
			"email": c.senderEmail,
			"name":  c.senderName,
		},
		"to": []map[string]string{
			{"email": job.Recipient},
		},
		"subject":  subject,
		"text":     fmt.Sprintf("Follow this link to accept your invitation: %s", link),
		"category": "invitation",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.sendTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/send", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}
