package llm

import "context"

// StubProvider is a canned-response Provider for tests and the
// cmd/ttcore demo, named and shaped after the teacher's
// agent.StubToolExecutor: a fixed queue of responses, popped one per
// call, with a sentinel final response repeated once the queue drains.
type StubProvider struct {
	Responses []StubResponse
	calls     int
}

// StubResponse is one canned reply: either a final text answer or a set
// of tool calls.
type StubResponse struct {
	Text  string
	Calls []ToolCallChunk
}

// NewStubProvider builds a StubProvider that returns responses in order.
func NewStubProvider(responses ...StubResponse) *StubProvider {
	return &StubProvider{Responses: responses}
}

func (s *StubProvider) Generate(ctx context.Context, _ *GenerateInput) (<-chan Chunk, error) {
	idx := s.calls
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.calls++

	ch := make(chan Chunk, 4)
	go func() {
		defer close(ch)
		if idx < 0 {
			return
		}
		resp := s.Responses[idx]
		if resp.Text != "" {
			select {
			case ch <- &TextChunk{Content: resp.Text}:
			case <-ctx.Done():
				return
			}
		}
		for i := range resp.Calls {
			c := resp.Calls[i]
			select {
			case ch <- &c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *StubProvider) Close() error { return nil }
