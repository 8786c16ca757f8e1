package crawler

import "igcrawl/pkg/models"

// Step is one ingestion operation of a pull plan
type Step int

const (
	StepProfile Step = iota
	StepMedia
	StepFollowers
	StepFollowing
)

func (s Step) String() string {
	switch s {
	case StepProfile:
		return "profile"
	case StepMedia:
		return "media"
	case StepFollowers:
		return "followers"
	case StepFollowing:
		return "following"
	default:
		return "unknown"
	}
}

// Expansion recurses into the neighbors in Dir at Order
type Expansion struct {
	Dir   models.Direction
	Order models.Order
}

// Plan is the work done for an account at one order
type Plan struct {
	Order  models.Order
	Steps  []Step
	Expand []Expansion
}

// PlanFor returns the pull plan of an order. Followers of an influencer
// become targets, anything reached through a following list becomes a
// candidate, and candidates are leaves.
func PlanFor(order models.Order) Plan {
	switch order {
	case models.OrderInfluencer:
		return Plan{
			Order: order,
			Steps: []Step{StepProfile, StepMedia, StepFollowers, StepFollowing},
			Expand: []Expansion{
				{Dir: models.Followers, Order: models.OrderTarget},
				{Dir: models.Following, Order: models.OrderCandidate},
			},
		}
	case models.OrderTarget:
		return Plan{
			Order: order,
			Steps: []Step{StepProfile, StepMedia, StepFollowing},
			Expand: []Expansion{
				{Dir: models.Following, Order: models.OrderCandidate},
			},
		}
	case models.OrderCandidate:
		return Plan{
			Order: order,
			Steps: []Step{StepProfile, StepMedia},
		}
	default:
		return Plan{Order: order}
	}
}

// Without drops the steps already covered by done. Expansions are kept: the
// neighbors still need visiting at this plan's orders.
func (p Plan) Without(done Plan) Plan {
	covered := make(map[Step]bool, len(done.Steps))
	for _, s := range done.Steps {
		covered[s] = true
	}

	out := Plan{Order: p.Order, Expand: p.Expand}
	for _, s := range p.Steps {
		if !covered[s] {
			out.Steps = append(out.Steps, s)
		}
	}
	return out
}

// Action is the controller's decision for an account given its stored state
type Action int

const (
	// ActionFull pulls an account that is not stored yet
	ActionFull Action = iota
	// ActionPromote moves a stored account to a more important order
	ActionPromote
	// ActionResume re-runs an unfinished plan at the same order
	ActionResume
	// ActionDone leaves an account already complete at this order
	ActionDone
	// ActionKeep leaves an account stored at a more important order
	ActionKeep
)

func (a Action) String() string {
	switch a {
	case ActionFull:
		return "full"
	case ActionPromote:
		return "promote"
	case ActionResume:
		return "resume"
	case ActionDone:
		return "done"
	case ActionKeep:
		return "keep"
	default:
		return "unknown"
	}
}

// Decide maps (stored state, requested order) to an action. acct is nil for
// accounts not stored.
func Decide(acct *models.Account, order models.Order) Action {
	switch {
	case acct == nil:
		return ActionFull
	case acct.Order > order:
		return ActionPromote
	case acct.Order < order:
		return ActionKeep
	case acct.Complete:
		return ActionDone
	default:
		return ActionResume
	}
}

// stepsFor returns the steps to run for action. A promotion only skips the
// previous order's steps if that plan had finished.
func stepsFor(action Action, acct *models.Account, order models.Order) []Step {
	plan := PlanFor(order)
	if action == ActionPromote && acct.Complete {
		return plan.Without(PlanFor(acct.Order)).Steps
	}
	return plan.Steps
}
