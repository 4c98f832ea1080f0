package storage

import (
	"context"
	"errors"

	"ebis/observability"
)

// instrumented records duration and error metrics for every call
type instrumented struct {
	next    Store
	backend string
	metrics *observability.Metrics
}

// Instrument wraps s so each operation is reported under backend
func Instrument(s Store, backend string, metrics *observability.Metrics) Store {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &instrumented{next: s, backend: backend, metrics: metrics}
}

func (i *instrumented) observe(op string, err error, timer *observability.Timer) {
	timer.ObserveStorage(i.backend, op)
	if err != nil && !errors.Is(err, ErrNotFound) {
		i.metrics.RecordStorageError(i.backend, op)
		observability.Error("storage operation failed",
			"backend", i.backend,
			"op", op,
			"error", err)
	}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	timer := i.metrics.NewTimer()
	v, err := i.next.Get(ctx, key)
	i.observe("get", err, timer)
	return v, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	timer := i.metrics.NewTimer()
	err := i.next.Set(ctx, key, value)
	i.observe("set", err, timer)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	timer := i.metrics.NewTimer()
	err := i.next.Delete(ctx, key)
	i.observe("delete", err, timer)
	return err
}

func (i *instrumented) Keys(ctx context.Context, prefix string) ([]string, error) {
	timer := i.metrics.NewTimer()
	keys, err := i.next.Keys(ctx, prefix)
	i.observe("keys", err, timer)
	return keys, err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}

func (i *instrumented) Health(ctx context.Context) error {
	return Health(ctx, i.next)
}
