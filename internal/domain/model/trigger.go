package model

import "fmt"

// Trigger is the lifecycle moment that selects which configured vault list to clean.
type Trigger string

const (
	TriggerDeploy Trigger = "deploy"
	TriggerRemove Trigger = "remove"
)

// Lifecycle hook names the cleaner is attached to.
const (
	HookBeforeDeploy = "before:deploy:deploy"
	HookBeforeRemove = "before:remove:remove"
)

// Hook returns the lifecycle hook name that fires this trigger.
func (t Trigger) Hook() string {
	switch t {
	case TriggerDeploy:
		return HookBeforeDeploy
	case TriggerRemove:
		return HookBeforeRemove
	default:
		return ""
	}
}

// ParseTrigger validates a trigger name ("deploy" or "remove").
func ParseTrigger(s string) (Trigger, error) {
	switch Trigger(s) {
	case TriggerDeploy, TriggerRemove:
		return Trigger(s), nil
	default:
		return "", fmt.Errorf("unknown trigger %q: want %q or %q", s, TriggerDeploy, TriggerRemove)
	}
}

// ParseHook maps a lifecycle hook name to its trigger.
func ParseHook(hook string) (Trigger, error) {
	switch hook {
	case HookBeforeDeploy:
		return TriggerDeploy, nil
	case HookBeforeRemove:
		return TriggerRemove, nil
	default:
		return "", fmt.Errorf("unknown hook %q: want %q or %q", hook, HookBeforeDeploy, HookBeforeRemove)
	}
}
