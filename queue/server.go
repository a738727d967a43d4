package queue

import (
	"github.com/hibiken/asynq"
)

// Server consumes the singleton queues (audit, analytics, campaign-check,
// bot-task, subscription-check, delivery). Per-group post queues live in the
// Registry instead.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewServer builds the singleton-queue server. Handlers are registered with
// Handle before Start.
func NewServer(redisOpt asynq.RedisClientOpt, policy Policy) *Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: policy.Concurrency,
		Queues: map[string]int{
			QueueDelivery:          3,
			QueueBotTask:           2,
			QueueCampaignCheck:     2,
			QueueSubscriptionCheck: 1,
			QueueAudit:             1,
			QueueAnalytics:         1,
		},
		RetryDelayFunc: policy.RetryDelayFunc,
	})

	return &Server{
		srv: srv,
		mux: asynq.NewServeMux(),
	}
}

// Handle registers a task handler on the server's mux
func (s *Server) Handle(taskType string, handler asynq.Handler) {
	s.mux.Handle(taskType, handler)
}

// HandleFunc registers a task handler func on the server's mux
func (s *Server) HandleFunc(taskType string, handler asynq.HandlerFunc) {
	s.mux.HandleFunc(taskType, handler)
}

// Start begins consuming tasks in background goroutines
func (s *Server) Start() error {
	return s.srv.Start(s.mux)
}

// Shutdown drains workers and waits for in-flight tasks
func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
