package events

import (
    "context"
    "time"
)

type ValuationRecorded struct {
    ValuationID  string
    PropertyKey  string
    RequestType  string
    DataSource   string
    Confidence   int64
    UsedFallback bool
    RecordedAt   time.Time
}

type Publisher interface {
    PublishValuationRecorded(ctx context.Context, evt ValuationRecorded)
    SubscribeValuationRecorded() <-chan ValuationRecorded
}

type inMemory struct { ch chan ValuationRecorded }

// NewInMemory returns a single-subscriber publisher that drops events when
// the buffer is full.
func NewInMemory(buffer int) Publisher {
    if buffer <= 0 { buffer = 256 }
    return &inMemory{ ch: make(chan ValuationRecorded, buffer) }
}

func (m *inMemory) PublishValuationRecorded(_ context.Context, evt ValuationRecorded) {
    select { case m.ch <- evt: default: }
}

func (m *inMemory) SubscribeValuationRecorded() <-chan ValuationRecorded { return m.ch }
