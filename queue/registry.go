package queue

import (
	"sync"

	"github.com/hibiken/asynq"
)

// groupServer is the consumer for one group's post queue. The default
// implementation wraps an asynq server; tests substitute fakes.
type groupServer interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

type asynqGroupServer struct {
	srv *asynq.Server
}

func (g *asynqGroupServer) Start(handler asynq.Handler) error {
	mux := asynq.NewServeMux()
	mux.Handle(TypePostToGroup, handler)
	return g.srv.Start(mux)
}

func (g *asynqGroupServer) Shutdown() {
	g.srv.Shutdown()
}

// Registry lazily starts one dedicated single-worker asynq server per group
// post queue. asynq servers consume a fixed queue set, so dynamic per-group
// queues each get their own server; one worker per queue keeps posts to a
// group strictly ordered.
type Registry struct {
	handler   asynq.Handler
	newServer func(chatID int64) groupServer

	mu      sync.Mutex
	servers map[int64]groupServer
}

// NewRegistry creates a registry. The handler processes TypePostToGroup tasks
// and is shared by every per-group server.
func NewRegistry(redisOpt asynq.RedisClientOpt, policy Policy, handler asynq.Handler) *Registry {
	return &Registry{
		handler: handler,
		newServer: func(chatID int64) groupServer {
			return &asynqGroupServer{srv: asynq.NewServer(redisOpt, asynq.Config{
				Concurrency:    1,
				Queues:         map[string]int{PostQueueName(chatID): 1},
				RetryDelayFunc: policy.RetryDelayFunc,
			})}
		},
		servers: make(map[int64]groupServer),
	}
}

// EnsureWorker starts the consumer for a group's post queue if it is not
// running yet. Safe for concurrent use; the first caller wins.
func (r *Registry) EnsureWorker(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[chatID]; ok {
		return nil
	}

	srv := r.newServer(chatID)
	if err := srv.Start(r.handler); err != nil {
		return err
	}

	r.servers[chatID] = srv
	return nil
}

// EnsureWorkers starts consumers for every given group so queues holding a
// durable backlog drain without waiting for the next rotation enqueue. One
// group's failure never blocks the rest; the first error is returned.
func (r *Registry) EnsureWorkers(chatIDs []int64) error {
	var firstErr error
	for _, chatID := range chatIDs {
		if err := r.EnsureWorker(chatID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ActiveGroups returns the chat ids that currently have a running worker
func (r *Registry) ActiveGroups() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown drains every per-group server and waits for in-flight posts
func (r *Registry) Shutdown() {
	r.mu.Lock()
	servers := make([]groupServer, 0, len(r.servers))
	for _, srv := range r.servers {
		servers = append(servers, srv)
	}
	r.servers = make(map[int64]groupServer)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(s groupServer) {
			defer wg.Done()
			s.Shutdown()
		}(srv)
	}
	wg.Wait()
}
