package datarecording

import (
	"time"

	"github.com/sarchlab/simbridge/sim"
)

const deliveryTraceTable = "bridge_trace"

// A deliveryTraceEntry is one recorded bridge hook invocation.
type deliveryTraceEntry struct {
	Bridge   string
	Position string
	Count    uint64
	SimTime  float64
	WallTime float64
}

// A DeliveryTracer is a hook that records bridge activity (deliveries,
// refresh scheduling, commits, publishes) into a data recorder.
//
// Delivery hooks fire on the messaging layer's goroutines, so the tracer
// relies on the recorder being safe for concurrent inserts.
type DeliveryTracer struct {
	recorder   DataRecorder
	timeTeller sim.TimeTeller
}

// NewDeliveryTracer creates a tracer writing into the given recorder.
func NewDeliveryTracer(
	recorder DataRecorder,
	timeTeller sim.TimeTeller,
) *DeliveryTracer {
	recorder.CreateTable(deliveryTraceTable, deliveryTraceEntry{})

	return &DeliveryTracer{
		recorder:   recorder,
		timeTeller: timeTeller,
	}
}

// Func records one hook invocation.
func (t *DeliveryTracer) Func(ctx sim.HookCtx) {
	entry := deliveryTraceEntry{
		Position: ctx.Pos.Name,
		SimTime:  float64(t.timeTeller.CurrentTime()),
		WallTime: float64(time.Now().UnixNano()) / 1e9,
	}

	if named, ok := ctx.Domain.(sim.Named); ok {
		entry.Bridge = named.Name()
	}

	if count, ok := ctx.Detail.(uint64); ok {
		entry.Count = count
	}

	t.recorder.InsertData(deliveryTraceTable, entry)
}
