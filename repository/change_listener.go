package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"prime-nature-nuts/logger"
)

// ProductsChannel is the NOTIFY channel the products trigger publishes on
const ProductsChannel = "products_changed"

// notificationConn is the part of *pgx.Conn the listener needs
type notificationConn interface {
	Exec(ctx context.Context, sql string) error
	WaitForNotification(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

type dialFunc func(ctx context.Context) (notificationConn, error)

// ChangeListener holds a dedicated connection that LISTENs for product changes
type ChangeListener struct {
	dial       dialFunc
	channel    string
	minBackoff time.Duration
	maxBackoff time.Duration
	after      func(time.Duration) <-chan time.Time
}

// NewChangeListener creates a listener that connects with connStr
func NewChangeListener(connStr string) *ChangeListener {
	return &ChangeListener{
		dial: func(ctx context.Context) (notificationConn, error) {
			conn, err := pgx.Connect(ctx, connStr)
			if err != nil {
				return nil, err
			}
			return pgxNotificationConn{conn}, nil
		},
		channel:    ProductsChannel,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Listen calls onChange for every notification until ctx is done. Lost
// connections are re-established with exponential backoff. Every successful
// LISTEN is followed by an onChange("") so changes made while no listener was
// registered are picked up.
func (l *ChangeListener) Listen(ctx context.Context, onChange func(payload string)) error {
	after := l.after
	if after == nil {
		after = time.After
	}
	backoff := l.minBackoff
	for {
		listening, err := l.listenOnce(ctx, onChange)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if listening {
			backoff = l.minBackoff
		}

		logger.Get().Warn("⚠️  Change listener disconnected, retrying",
			zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-after(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

// listenOnce reports whether LISTEN succeeded before the connection ended
func (l *ChangeListener) listenOnce(ctx context.Context, onChange func(string)) (bool, error) {
	conn, err := l.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	if err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	logger.Get().Info("👂 Listening for product changes", zap.String("channel", l.channel))

	onChange("")

	for {
		payload, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		onChange(payload)
	}
}

// pgxNotificationConn adapts *pgx.Conn to notificationConn
type pgxNotificationConn struct {
	conn *pgx.Conn
}

func (c pgxNotificationConn) Exec(ctx context.Context, sql string) error {
	_, err := c.conn.Exec(ctx, sql)
	return err
}

func (c pgxNotificationConn) WaitForNotification(ctx context.Context) (string, error) {
	n, err := c.conn.WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", errors.New("empty notification")
	}
	return n.Payload, nil
}

func (c pgxNotificationConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
