package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryDropsWhenFull(t *testing.T) {
	p := NewInMemory(1)
	p.PublishValuationRecorded(context.Background(), ValuationRecorded{PropertyKey: "a"})
	p.PublishValuationRecorded(context.Background(), ValuationRecorded{PropertyKey: "b"})

	ch := p.SubscribeValuationRecorded()
	assert.Equal(t, "a", (<-ch).PropertyKey)
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}
