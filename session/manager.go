package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/room4-2/agentbridge/config"
	"github.com/room4-2/agentbridge/functions"
)

const activeSessionsKey = "active_sessions"

// AgentDialer opens the agent leg of a new call.
type AgentDialer func(ctx context.Context) (Conn, error)

// Manager manages all call relays
type Manager struct {
	relays     map[string]*Relay
	mu         sync.RWMutex
	slots      *semaphore.Weighted
	live       sync.WaitGroup
	closing    bool
	redis      *redis.Client
	config     *config.Config
	dispatcher *functions.Dispatcher
	settings   []byte
	logger     *slog.Logger
}

// NewManager creates a session manager with Redis connection. Redis is
// optional: when it cannot be reached sessions are only tracked in memory.
func NewManager(cfg *config.Config, dispatcher *functions.Dispatcher, settings []byte, logger *slog.Logger) (*Manager, error) {
	if cfg.MaxSessions <= 0 {
		return nil, fmt.Errorf("invalid max sessions: %d", cfg.MaxSessions)
	}
	if logger == nil {
		logger = slog.Default()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, session mirror disabled",
			slog.String("addr", cfg.RedisURL), slog.Any("err", err))
		_ = redisClient.Close()
		redisClient = nil
	}

	return &Manager{
		relays:     make(map[string]*Relay),
		slots:      semaphore.NewWeighted(int64(cfg.MaxSessions)),
		redis:      redisClient,
		config:     cfg,
		dispatcher: dispatcher,
		settings:   settings,
		logger:     logger,
	}, nil
}

// CreateTwilioSession reserves a slot, dials the agent and builds the relay
// for an accepted Twilio connection. The caller must Run the relay and
// then RemoveSession it.
func (sm *Manager) CreateTwilioSession(ctx context.Context, caller Conn, dial AgentDialer) (*Relay, error) {
	if sm.isClosing() {
		return nil, ErrSessionClosed
	}
	if !sm.slots.TryAcquire(1) {
		return nil, ErrMaxSessions
	}

	agent, err := dial(ctx)
	if err != nil {
		sm.slots.Release(1)
		return nil, fmt.Errorf("dial agent: %w", err)
	}

	sessionID := uuid.New().String()
	relay := NewRelay(caller, agent, RelayConfig{
		ID:           sessionID,
		FrameSize:    sm.config.FrameSize,
		QueueSize:    sm.config.AudioQueueSize,
		WriteTimeout: sm.config.WriteTimeout,
		BargeInTypes: sm.config.BargeInTypes,
		Settings:     sm.settings,
		Dispatcher:   sm.dispatcher,
		Logger:       sm.logger,
	})
	relay.OnStreamStart = func(streamSid string) {
		sm.markStreaming(context.WithoutCancel(ctx), sessionID, streamSid)
	}

	// Shutdown may have started while dialing; live must not grow after it.
	sm.mu.Lock()
	if sm.closing {
		sm.mu.Unlock()
		_ = agent.Close()
		sm.slots.Release(1)
		return nil, ErrSessionClosed
	}
	sm.relays[sessionID] = relay
	sm.live.Add(1)
	sm.mu.Unlock()

	sm.storeSession(ctx, relay)
	return relay, nil
}

func (sm *Manager) isClosing() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.closing
}

// storeSession mirrors a session to Redis
func (sm *Manager) storeSession(ctx context.Context, relay *Relay) {
	if sm.redis == nil {
		return
	}
	key := "session:" + relay.ID
	pipe := sm.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"created_at": relay.CreatedAt.Format(time.RFC3339),
		"status":     StateAwaitingStreamID.String(),
		"is_twilio":  true,
	})
	pipe.SAdd(ctx, activeSessionsKey, relay.ID)
	pipe.Expire(ctx, key, sm.config.SessionTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		sm.logger.Warn("failed to mirror session", slog.String("session_id", relay.ID), slog.Any("err", err))
	}
}

func (sm *Manager) markStreaming(ctx context.Context, sessionID, streamSid string) {
	if sm.redis == nil {
		return
	}
	err := sm.redis.HSet(ctx, "session:"+sessionID, map[string]any{
		"stream_sid": streamSid,
		"status":     StateActive.String(),
	}).Err()
	if err != nil {
		sm.logger.Warn("failed to mirror stream sid", slog.String("session_id", sessionID), slog.Any("err", err))
	}
}

// GetSession retrieves a relay by ID
func (sm *Manager) GetSession(sessionID string) (*Relay, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	relay, exists := sm.relays[sessionID]
	return relay, exists
}

// RemoveSession closes a relay and frees its slot
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	relay, exists := sm.relays[sessionID]
	if !exists {
		sm.mu.Unlock()
		return
	}
	delete(sm.relays, sessionID)
	sm.mu.Unlock()

	relay.Close()

	if sm.redis != nil {
		pipe := sm.redis.TxPipeline()
		pipe.Del(ctx, "session:"+sessionID)
		pipe.SRem(ctx, activeSessionsKey, sessionID)
		if _, err := pipe.Exec(ctx); err != nil {
			sm.logger.Warn("failed to remove session mirror", slog.String("session_id", sessionID), slog.Any("err", err))
		}
	}

	sm.slots.Release(1)
	sm.live.Done()
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.relays)
}

// RefreshMirror extends the TTL of live sessions and drops set members
// whose hash has already expired.
func (sm *Manager) RefreshMirror(ctx context.Context) error {
	if sm.redis == nil {
		return nil
	}

	sm.mu.RLock()
	ids := make([]string, 0, len(sm.relays))
	for id := range sm.relays {
		ids = append(ids, id)
	}
	sm.mu.RUnlock()

	for _, id := range ids {
		if err := sm.redis.Expire(ctx, "session:"+id, sm.config.SessionTimeout).Err(); err != nil {
			return fmt.Errorf("refresh session %s: %w", id, err)
		}
	}

	members, err := sm.redis.SMembers(ctx, activeSessionsKey).Result()
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	for _, id := range members {
		n, err := sm.redis.Exists(ctx, "session:"+id).Result()
		if err != nil {
			return fmt.Errorf("check session %s: %w", id, err)
		}
		if n == 0 {
			sm.redis.SRem(ctx, activeSessionsKey, id)
		}
	}
	return nil
}

// StartCleanupRoutine keeps the Redis mirror in step with live sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sm.RefreshMirror(ctx); err != nil {
				sm.logger.Warn("session mirror refresh failed", slog.Any("err", err))
			}
		}
	}
}

// Shutdown closes every relay and waits until their handlers have removed
// them, or ctx ends. New sessions are refused with ErrSessionClosed from
// the moment it is called.
func (sm *Manager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sm.closing = true
	for _, relay := range sm.relays {
		relay.Close()
	}
	sm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		sm.live.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("sessions still open: %w", ctx.Err())
	}

	if sm.redis != nil {
		_ = sm.redis.Close()
	}
	return err
}
