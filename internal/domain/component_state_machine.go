package domain

import (
	"fmt"
)

// ComponentStatus is the state of a schema object
type ComponentStatus string

const (
	// ComponentLocked marks a schema change in progress
	ComponentLocked ComponentStatus = "LOCKED"
	// ComponentActive marks a schema object that is live
	ComponentActive ComponentStatus = "ACTIVE"
	// ComponentInactive marks a schema object whose change failed
	ComponentInactive ComponentStatus = "INACTIVE"
)

// HistoryStatus is the state of one recorded change attempt
type HistoryStatus string

const (
	HistoryInProgress HistoryStatus = "IN_PROGRESS"
	HistoryCompleted  HistoryStatus = "COMPLETED"
	HistoryFailed     HistoryStatus = "FAILED"
)

// ComponentType is the kind of schema object a component stands for
type ComponentType string

const (
	ComponentTable   ComponentType = "TABLE"
	ComponentField   ComponentType = "FIELD"
	ComponentPage    ComponentType = "PAGE"
	ComponentElement ComponentType = "ELEMENT"
)

// ComponentTransition represents an action that can change component state
type ComponentTransition string

const (
	// TransitionLock starts a change on an existing component
	TransitionLock ComponentTransition = "Lock"
	// TransitionActivate finishes a change successfully
	TransitionActivate ComponentTransition = "Activate"
	// TransitionDeactivate records a failed change
	TransitionDeactivate ComponentTransition = "Deactivate"
)

// ComponentStateMachine enforces valid state transitions for components and
// the paired history record. Invalid transitions return an error.
type ComponentStateMachine struct {
	// transitions maps (current state, transition) -> next state
	transitions map[stateTransitionKey]ComponentStatus
	history     map[stateTransitionKey]HistoryStatus
}

type stateTransitionKey struct {
	state      string
	transition ComponentTransition
}

// NewComponentStateMachine creates a new state machine with the component lifecycle rules.
// State diagram:
//
//	        create
//	          │
//	          ▼
//	      [LOCKED] ◄──────Lock──────┐
//	       │      \                 │
//	  Activate   Deactivate         │
//	       │        \               │
//	       ▼         ▼              │
//	   [ACTIVE]   [INACTIVE]        │
//	       │          │             │
//	       └──────────┴─────────────┘
//
// The paired history goes IN_PROGRESS -> COMPLETED on Activate and
// IN_PROGRESS -> FAILED on Deactivate. Creation is not a transition: a new
// component starts LOCKED with its history IN_PROGRESS.
func NewComponentStateMachine() *ComponentStateMachine {
	sm := &ComponentStateMachine{
		transitions: make(map[stateTransitionKey]ComponentStatus),
		history:     make(map[stateTransitionKey]HistoryStatus),
	}

	sm.addTransition(ComponentLocked, TransitionActivate, ComponentActive)
	sm.addTransition(ComponentLocked, TransitionDeactivate, ComponentInactive)
	sm.addTransition(ComponentActive, TransitionLock, ComponentLocked)
	sm.addTransition(ComponentInactive, TransitionLock, ComponentLocked)

	sm.history[stateTransitionKey{string(HistoryInProgress), TransitionActivate}] = HistoryCompleted
	sm.history[stateTransitionKey{string(HistoryInProgress), TransitionDeactivate}] = HistoryFailed

	return sm
}

func (sm *ComponentStateMachine) addTransition(from ComponentStatus, via ComponentTransition, to ComponentStatus) {
	key := stateTransitionKey{state: string(from), transition: via}
	sm.transitions[key] = to
}

// InitialState is the state of a freshly created component and its history
func (sm *ComponentStateMachine) InitialState() (ComponentStatus, HistoryStatus) {
	return ComponentLocked, HistoryInProgress
}

// Transition attempts to transition from the current state using the given action.
// Returns the new state or an error if the transition is invalid.
func (sm *ComponentStateMachine) Transition(current ComponentStatus, action ComponentTransition) (ComponentStatus, error) {
	next, ok := sm.transitions[stateTransitionKey{state: string(current), transition: action}]
	if !ok {
		return current, fmt.Errorf("invalid state transition: cannot %s from %s", action, current)
	}
	return next, nil
}

// HistoryTransition returns the history status that accompanies a component transition
func (sm *ComponentStateMachine) HistoryTransition(current HistoryStatus, action ComponentTransition) (HistoryStatus, error) {
	next, ok := sm.history[stateTransitionKey{state: string(current), transition: action}]
	if !ok {
		return current, fmt.Errorf("invalid history transition: cannot %s from %s", action, current)
	}
	return next, nil
}

// CanTransition checks if a transition is valid without performing it.
func (sm *ComponentStateMachine) CanTransition(current ComponentStatus, action ComponentTransition) bool {
	_, ok := sm.transitions[stateTransitionKey{state: string(current), transition: action}]
	return ok
}

// ValidTransitions returns all valid transitions from the given state.
func (sm *ComponentStateMachine) ValidTransitions(state ComponentStatus) []ComponentTransition {
	var result []ComponentTransition
	for key := range sm.transitions {
		if key.state == string(state) {
			result = append(result, key.transition)
		}
	}
	return result
}

// IsSettled returns true if no change is in progress for a component in this state.
func (sm *ComponentStateMachine) IsSettled(state ComponentStatus) bool {
	return state == ComponentActive || state == ComponentInactive
}
