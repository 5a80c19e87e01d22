package llm

import "context"

// ClientFunc adapts a function to the Client interface. Used in tests.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// StaticClient returns the same response for every request. Used in tests
// and local dry runs.
type StaticClient struct {
	Response Response
	Err      error
}

// Complete implements Client.
func (c *StaticClient) Complete(_ context.Context, _ *Request) (*Response, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	resp := c.Response
	return &resp, nil
}
