package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicActor tags the request's New Relic transaction with the
// authenticated actor. It must run after AuthMiddleware and is a no-op when
// the agent is disabled.
func NewRelicActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn != nil {
			if actor, ok := ActorFromContext(c); ok {
				txn.AddAttribute("actor.id", actor.ID)
				txn.AddAttribute("actor.role", string(actor.Role))
			}
		}

		c.Next()

		// Record handler errors pushed with c.Error.
		if txn != nil {
			for _, err := range c.Errors {
				txn.NoticeError(err.Err)
			}
		}
	}
}
