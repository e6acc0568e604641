package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

func okPing(context.Context) error { return nil }

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})
}

func TestServiceRunStopsOnFailedDependency(t *testing.T) {
	ran := false
	svc, err := NewService(ServiceParams{
		Logger: quietLogger(),
		DB:     pingFunc(okPing),
		Redis:  pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		PubSub: pingFunc(okPing),
		Settlement: runFunc(func(context.Context) error {
			ran = true
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness error")
	}
	if ran {
		t.Fatal("consumer must not start when a dependency is down")
	}
}

func TestServiceRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger:     quietLogger(),
		DB:         pingFunc(okPing),
		Redis:      pingFunc(okPing),
		PubSub:     pingFunc(okPing),
		Settlement: runFunc(func(context.Context) error { return boom }),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}
}

func TestNewServiceRequiresConsumer(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger: quietLogger(),
		DB:     pingFunc(okPing),
		Redis:  pingFunc(okPing),
		PubSub: pingFunc(okPing),
	})
	if err == nil {
		t.Fatal("expected error without settlement consumer")
	}
}
