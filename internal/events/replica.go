package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const listenerPingInterval = 90 * time.Second

// rebuildMarker in place of a fingerprint asks every replica to rebuild its
// semantic index from the knowledge store.
const rebuildMarker = "*"

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PromotionNotifier announces promotions to other replicas over
// PostgreSQL NOTIFY. The payload is "<instance>:<fingerprint>".
type PromotionNotifier struct {
	db         execer
	channel    string
	instanceID string
}

func NewPromotionNotifier(db execer, channel, instanceID string) *PromotionNotifier {
	return &PromotionNotifier{db: db, channel: channel, instanceID: instanceID}
}

func (n *PromotionNotifier) Notify(ctx context.Context, fingerprint string) error {
	return n.send(ctx, fingerprint)
}

// NotifyRebuild asks every listening replica to resynchronize.
func (n *PromotionNotifier) NotifyRebuild(ctx context.Context) error {
	return n.send(ctx, rebuildMarker)
}

func (n *PromotionNotifier) send(ctx context.Context, fingerprint string) error {
	payload := n.instanceID + ":" + fingerprint
	if _, err := n.db.Exec(ctx, "SELECT pg_notify($1, $2)", n.channel, payload); err != nil {
		return fmt.Errorf("failed to notify replicas: %w", err)
	}
	return nil
}

// PromotionHandler applies a promotion made by another replica.
type PromotionHandler func(ctx context.Context, fingerprint string)

// PromotionListener receives promotions from other replicas. Its own
// notifications are ignored. Resync runs on a rebuild request and after a
// dropped connection, since notifications sent while disconnected are lost.
type PromotionListener struct {
	dsn        string
	channel    string
	instanceID string
	handler    PromotionHandler
	resync     func(ctx context.Context)
	logger     *zap.Logger
}

func NewPromotionListener(dsn, channel, instanceID string, handler PromotionHandler, resync func(ctx context.Context), logger *zap.Logger) *PromotionListener {
	return &PromotionListener{
		dsn:        dsn,
		channel:    channel,
		instanceID: instanceID,
		handler:    handler,
		resync:     resync,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled.
func (l *PromotionListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("Promotion listener connection event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", pq.QuoteIdentifier(l.channel), err)
	}

	l.logger.Info("Listening for replica promotions", zap.String("channel", l.channel))

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				l.logger.Warn("Promotion listener reconnected, resynchronizing")
				l.runResync(ctx)
				continue
			}
			l.dispatch(ctx, n.Extra)
		case <-time.After(listenerPingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("Promotion listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (l *PromotionListener) dispatch(ctx context.Context, payload string) {
	instance, fingerprint, ok := ParsePromotionPayload(payload)
	if !ok {
		l.logger.Warn("Malformed promotion notification", zap.String("payload", payload))
		return
	}
	if instance == l.instanceID {
		return
	}
	if fingerprint == rebuildMarker {
		l.logger.Info("Rebuild requested", zap.String("from", instance))
		l.runResync(ctx)
		return
	}
	l.handler(ctx, fingerprint)
}

func (l *PromotionListener) runResync(ctx context.Context) {
	if l.resync != nil {
		l.resync(ctx)
	}
}

func ParsePromotionPayload(payload string) (instance, fingerprint string, ok bool) {
	instance, fingerprint, ok = strings.Cut(payload, ":")
	if !ok || instance == "" || fingerprint == "" {
		return "", "", false
	}
	return instance, fingerprint, true
}
