package domain

import (
	"math"
	"strings"
)

// ActivityInput is the part of a logged activity that drives goal progress.
// Absent numbers are zero.
type ActivityInput struct {
	ActivityType   string
	Duration       float64
	CaloriesBurned float64
	CustomField    float64
}

func (in ActivityInput) normalized() ActivityInput {
	return ActivityInput{
		ActivityType:   strings.ToLower(strings.TrimSpace(in.ActivityType)),
		Duration:       finiteOrZero(in.Duration),
		CaloriesBurned: finiteOrZero(in.CaloriesBurned),
		CustomField:    finiteOrZero(in.CustomField),
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Activity types with a progress meaning.
const (
	ActivityTypeRunning       = "running"
	ActivityTypeHiking        = "hiking"
	ActivityTypeWalking       = "walking"
	ActivityTypeCycling       = "cycling"
	ActivityTypeWorkout       = "workout"
	ActivityTypeWeightlifting = "weightlifting"
)

var distanceActivities = map[string]struct{}{
	ActivityTypeRunning: {},
	ActivityTypeHiking:  {},
	ActivityTypeWalking: {},
	ActivityTypeCycling: {},
}

// ProgressRule is the closed set of update rules. Every GoalType maps to
// exactly one rule; tags without a rule map to RuleUnrecognized.
type ProgressRule int

const (
	RuleUnrecognized ProgressRule = iota
	RuleBurnCalories
	RuleDistance
	RuleDuration
	RuleFrequency
	RuleStrength
)

func (r ProgressRule) String() string {
	switch r {
	case RuleBurnCalories:
		return "burn_calories"
	case RuleDistance:
		return "distance"
	case RuleDuration:
		return "duration"
	case RuleFrequency:
		return "frequency"
	case RuleStrength:
		return "strength"
	default:
		return "unrecognized"
	}
}

// RuleFor resolves the rule for a goal type.
func RuleFor(t GoalType) ProgressRule {
	switch t {
	case GoalTypeBurnCalories:
		return RuleBurnCalories
	case GoalTypeDistance:
		return RuleDistance
	case GoalTypeDuration:
		return RuleDuration
	case GoalTypeFrequency:
		return RuleFrequency
	case GoalTypeStrength:
		return RuleStrength
	default:
		return RuleUnrecognized
	}
}

type ruleFunc func(Goal, ActivityInput) Goal

var ruleFuncs = map[ProgressRule]ruleFunc{
	RuleBurnCalories: addCalories,
	RuleDistance:     addDistance,
	RuleDuration:     addDuration,
	RuleFrequency:    countWorkout,
	RuleStrength:     liftMax,
}

func addCalories(g Goal, in ActivityInput) Goal {
	g.CurrentValue += in.CaloriesBurned
	return g
}

func addDistance(g Goal, in ActivityInput) Goal {
	if _, ok := distanceActivities[in.ActivityType]; ok {
		g.CurrentValue += in.CustomField
	}
	return g
}

func addDuration(g Goal, in ActivityInput) Goal {
	g.CurrentValue += in.Duration
	return g
}

func countWorkout(g Goal, in ActivityInput) Goal {
	if in.ActivityType == ActivityTypeWorkout {
		g.CurrentValue++
	}
	return g
}

func liftMax(g Goal, in ActivityInput) Goal {
	if in.ActivityType == ActivityTypeWeightlifting {
		g.CurrentValue = math.Max(g.CurrentValue, in.CustomField)
	}
	return g
}

// ApplyActivity returns goal advanced by the activity. Goals that are not
// active, and goals whose type has no rule, are returned unchanged. A goal
// that reaches its target is clamped to it and completed.
func ApplyActivity(goal Goal, input ActivityInput) Goal {
	if !goal.Active() {
		return goal
	}
	apply, ok := ruleFuncs[RuleFor(goal.FitnessGoal)]
	if !ok {
		return goal
	}

	return settle(apply(goal, input.normalized()))
}
