package dbinit

import (
	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/internal/log"
)

// ResolverKey is the post-processor key the Resolver is installed under.
const ResolverKey = "dbinit.Resolver"

// Install registers a Resolver built from opts as a post-processor of c, so the
// next Build orders database initializers before their dependents. Installing
// more than once keeps the first Resolver.
func Install(c *container.Container, opts ...Option) error {
	if c == nil {
		return ErrContainerIsNil
	}
	added, err := c.AddPostProcessor(ResolverKey, NewResolver(opts...))
	if err != nil {
		return err
	}
	if !added {
		log.Debug(log.CatDBInit, "resolver already installed")
	}
	return nil
}
