package gate

import (
	"net/url"

	"github.com/spec-kit/astro-gateway/internal/config"
)

// Action is the outcome of a gate evaluation.
type Action string

const (
	ActionPass              Action = "pass"
	ActionUserLogin         Action = "redirect_user_login"
	ActionAstrologerLogin   Action = "redirect_astrologer_login"
	ActionUserLanding       Action = "redirect_user_landing"
	ActionAstrologerLanding Action = "redirect_astrologer_landing"
)

// Decision tells the middleware whether to redirect and where.
type Decision struct {
	Action   Action
	Location string
}

// Redirect reports whether the decision short-circuits the request.
func (d Decision) Redirect() bool {
	return d.Action != ActionPass
}

// Targets are the redirect destinations used by Decide.
type Targets struct {
	UserLogin         string
	AstrologerLogin   string
	UserLanding       string
	AstrologerLanding string
	QueryKey          string
}

// NewTargets reads redirect targets from gate configuration.
func NewTargets(cfg config.GateConfig) Targets {
	return Targets{
		UserLogin:         cfg.UserLoginPath,
		AstrologerLogin:   cfg.AstrologerLoginPath,
		UserLanding:       cfg.UserLandingPath,
		AstrologerLanding: cfg.AstrologerLanding,
		QueryKey:          cfg.RedirectQueryKey,
	}
}

// Decide applies the gate policy in fixed order; the first applicable rule wins.
func Decide(path string, tokens Tokens, table RouteTable, targets Targets) Decision {
	c := table.Classify(path)

	switch {
	case c.UserProtected && tokens.User == "":
		return Decision{Action: ActionUserLogin, Location: withReturn(targets.UserLogin, targets.QueryKey, path)}
	case c.AstrologerProtected && tokens.Astrologer == "":
		return Decision{Action: ActionAstrologerLogin, Location: withReturn(targets.AstrologerLogin, targets.QueryKey, path)}
	case c.UserAuth && tokens.User != "":
		return Decision{Action: ActionUserLanding, Location: targets.UserLanding}
	case c.AstrologerAuth && tokens.Astrologer != "":
		return Decision{Action: ActionAstrologerLanding, Location: targets.AstrologerLanding}
	default:
		return Decision{Action: ActionPass}
	}
}

func withReturn(loginPath, key, original string) string {
	q := url.Values{}
	q.Set(key, original)
	return loginPath + "?" + q.Encode()
}
