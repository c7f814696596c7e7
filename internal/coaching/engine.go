package coaching

// Engine runs all registered rules against a Context and collects the
// resulting signals.
type Engine struct {
	rules []Rule
}

// NewEngine creates a coaching engine with all built-in rules registered.
func NewEngine() *Engine {
	return &Engine{
		rules: []Rule{
			BehaviorLack,
			RelationshipDecline,
			CompetitorActivity,
			ConversionLack,
			InterestDrop,
			WeakBehavior,
		},
	}
}

// Run executes all registered rules and returns the signals ranked by
// priority. At most one signal per type is kept.
func (e *Engine) Run(ctx *Context) []Signal {
	var all []Signal
	for _, rule := range e.rules {
		if s := rule(ctx); s != nil {
			all = append(all, *s)
		}
	}
	return RankSignals(all)
}
