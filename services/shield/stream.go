// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"

	"github.com/picore-systems/supercore/pkg/syncqueue"
)

// Stream feeds payloads through a Shield one at a time, in arrival
// order. Producers enqueue from any goroutine; a single consumer drains
// the queue so screening decisions land in the order payloads arrived.
type Stream struct {
	shield *Shield
	queue  *syncqueue.Queue[string]
}

// NewStream returns a stream backed by this shield.
func (s *Shield) NewStream() *Stream {
	return &Stream{
		shield: s,
		queue:  syncqueue.New[string](),
	}
}

// Enqueue admits a payload to the stream. It never blocks and fails
// only after the stream has shut down.
func (st *Stream) Enqueue(payload string) error {
	return st.queue.Push(payload)
}

// Run consumes the stream until ctx is cancelled, passing each sealed
// payload to sink. Quarantined and rejected payloads are recorded by
// the shield and dropped from the stream; they do not reach the sink.
// Payloads already admitted when ctx is cancelled are still drained.
func (st *Stream) Run(ctx context.Context, sink func(sealed string)) {
	go func() {
		<-ctx.Done()
		st.queue.Close()
	}()

	for {
		payload, ok := st.queue.Pop()
		if !ok {
			return
		}
		sealed, err := st.shield.Process(payload)
		if err != nil {
			st.shield.log.Debug("stream payload dropped", "error", err)
			continue
		}
		if sink != nil {
			sink(sealed)
		}
	}
}
