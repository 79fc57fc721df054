// Package recovery attempts automated remediation of unhealthy targets.
//
// An Engine probes system health on a timer. When the overall status is not
// healthy it offers every non-healthy target to the registered Actions whose
// TargetService matches and whose Condition holds. Each Action is gated by a
// cooldown since its last attempt and by an attempt budget over a trailing
// 24 hour window.
//
// Every attempt is recorded regardless of outcome. A successful remediation
// sends a medium priority notification. Failures escalate once: an urgent
// "manual intervention required" notification is sent the first time an
// action's attempt count within the window reaches the escalation threshold,
// and not again until that escalating attempt has left the window.
package recovery
