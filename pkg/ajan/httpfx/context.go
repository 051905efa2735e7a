package httpfx

import (
	"context"
	"net/http"
)

// Handler is one link in a route's middleware chain. It returns a Result
// instead of writing to the ResponseWriter directly so that middleware can
// inspect or override what a downstream handler produced.
type Handler func(*Context) Result

// Context carries the request/response pair through a route's handler
// chain, alongside the Results helper used to build a Result.
type Context struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	Results        Results

	handlers []Handler
	index    int
}

// Next invokes the next handler in the chain and returns its Result. Calling
// Next past the end of the chain returns an empty Ok result.
func (c *Context) Next() Result {
	c.index++

	if c.index < len(c.handlers) {
		return c.handlers[c.index](c)
	}

	return c.Results.Ok()
}

// UpdateContext replaces the request with one carrying ctx, so downstream
// handlers observe values stored by an earlier handler in the chain.
func (c *Context) UpdateContext(ctx context.Context) {
	c.Request = c.Request.WithContext(ctx)
}
