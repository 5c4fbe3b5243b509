// Package client is a small typed client for the docs API's version
// resolution and build endpoints.
//
//	c := client.New("http://localhost:8000", client.WithCredentials("eric", "secret"))
//	cmp, err := c.Highest(ctx, "pip", "1.0")
package client
