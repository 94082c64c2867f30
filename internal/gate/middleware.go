package gate

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/config"
	"github.com/spec-kit/astro-gateway/internal/observability"
)

// Gate is the edge middleware deciding, before any page renders, whether a
// request must be redirected. It is stateless per request.
type Gate struct {
	table   RouteTable
	targets Targets
	cookies CookieReader
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New constructs the gate from configuration.
func New(cfg config.GateConfig, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		table:   NewRouteTable(cfg),
		targets: NewTargets(cfg),
		cookies: NewCookieReader(cfg),
		logger:  logger,
		metrics: metrics,
	}
}

// Cookies exposes the reader so session handlers resolve tokens the same way.
func (g *Gate) Cookies() CookieReader {
	return g.cookies
}

// Handle is the fiber handler.
func (g *Gate) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if g.table.Excluded(path) {
		return c.Next()
	}

	decision := Decide(path, g.cookies.Read(c.Cookies), g.table, g.targets)
	g.metrics.RecordGateDecision(string(decision.Action))
	if !decision.Redirect() {
		return c.Next()
	}

	g.logger.Debug("gate redirect",
		zap.String("path", path),
		zap.String("action", string(decision.Action)),
		zap.String("location", decision.Location))
	return c.Redirect(decision.Location, fiber.StatusTemporaryRedirect)
}
