// Package wizard models multi-step forms: each step owns a validation
// predicate over the typed form, and advancing is only possible when the
// current step passes.
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
)

// Step is one page of a flow. Validate returns the first failing rule only.
type Step[T any] struct {
	Name     string
	Validate func(T) error
}

// StepError reports which step rejected the form.
type StepError struct {
	Step    int
	Name    string
	Message string
}

func (e *StepError) Error() string {
	return e.Message
}

// Result is either Ok or Err.
type Result interface {
	isResult()
}

// Ok carries the step the session moved to.
type Ok struct {
	Next int
}

// Err carries the single message that blocked the transition.
type Err struct {
	Step    int
	Message string
}

func (Ok) isResult()  {}
func (Err) isResult() {}

// Flow is an ordered, immutable list of steps over form type T.
type Flow[T any] struct {
	name  string
	steps []Step[T]
}

// NewFlow panics on an empty flow; flows are declared at package init.
func NewFlow[T any](name string, steps ...Step[T]) *Flow[T] {
	if len(steps) == 0 {
		panic("wizard: flow " + name + " has no steps")
	}
	return &Flow[T]{name: name, steps: steps}
}

func (f *Flow[T]) Name() string { return f.name }

func (f *Flow[T]) Len() int { return len(f.steps) }

// StepNames lists the step titles in order.
func (f *Flow[T]) StepNames() []string {
	names := make([]string, len(f.steps))
	for i, s := range f.steps {
		names[i] = s.Name
	}
	return names
}

// ValidateStep runs the predicates of the 1-based step.
func (f *Flow[T]) ValidateStep(step int, form T) error {
	if step < 1 || step > len(f.steps) {
		return fmt.Errorf("%s: step %d out of range 1..%d", f.name, step, len(f.steps))
	}
	s := f.steps[step-1]
	if s.Validate == nil {
		return nil
	}
	if err := s.Validate(form); err != nil {
		return &StepError{Step: step, Name: s.Name, Message: err.Error()}
	}
	return nil
}

// ValidateAll runs every step in order and returns the first failure.
func (f *Flow[T]) ValidateAll(form T) error {
	for i := range f.steps {
		if err := f.ValidateStep(i+1, form); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRaw decodes a JSON form and validates one step of it.
func (f *Flow[T]) ValidateRaw(step int, data []byte) error {
	var form T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &form); err != nil {
			return &StepError{Step: step, Message: "Invalid form payload"}
		}
	}
	return f.ValidateStep(step, form)
}

// Start opens a session positioned at step 1.
func (f *Flow[T]) Start(initial T) *Session[T] {
	return &Session[T]{flow: f, step: 1, form: initial, state: StateEditing}
}

// State of a session
type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Session walks one form through a flow. Not safe for concurrent use.
type Session[T any] struct {
	flow    *Flow[T]
	step    int
	form    T
	state   State
	lastErr string
}

func (s *Session[T]) Step() int { return s.step }

func (s *Session[T]) Form() T { return s.form }

func (s *Session[T]) State() State { return s.state }

func (s *Session[T]) LastError() string { return s.lastErr }

// Next stores the form and advances when the current step validates.
// On the last step a passing form stays put; use Submit.
func (s *Session[T]) Next(form T) Result {
	if s.state == StateDone || s.state == StateSubmitting {
		return Err{Step: s.step, Message: "Form has already been submitted"}
	}
	s.form = form
	s.state = StateEditing
	if err := s.flow.ValidateStep(s.step, form); err != nil {
		s.lastErr = err.Error()
		return Err{Step: s.step, Message: s.lastErr}
	}
	s.lastErr = ""
	if s.step < s.flow.Len() {
		s.step++
	}
	return Ok{Next: s.step}
}

// Back returns to the previous step keeping the stored form.
func (s *Session[T]) Back() int {
	if s.state == StateDone || s.state == StateSubmitting {
		return s.step
	}
	if s.step > 1 {
		s.step--
	}
	s.state = StateEditing
	s.lastErr = ""
	return s.step
}

// Submit validates every step and then runs submit. A failed write leaves the
// session on the current step with the backend message verbatim.
func (s *Session[T]) Submit(ctx context.Context, form T, submit func(context.Context, T) error) Result {
	if s.state == StateDone {
		return Err{Step: s.step, Message: "Form has already been submitted"}
	}
	s.form = form
	if s.step != s.flow.Len() {
		s.lastErr = "Complete all steps before submitting"
		return Err{Step: s.step, Message: s.lastErr}
	}
	if err := s.flow.ValidateAll(form); err != nil {
		s.lastErr = err.Error()
		return Err{Step: s.step, Message: s.lastErr}
	}

	s.state = StateSubmitting
	if err := submit(ctx, form); err != nil {
		s.state = StateError
		s.lastErr = err.Error()
		return Err{Step: s.step, Message: s.lastErr}
	}
	s.state = StateDone
	s.lastErr = ""
	return Ok{Next: s.step}
}

// Validator is the type-erased view of a Flow used by HTTP step checks.
type Validator interface {
	Name() string
	Len() int
	StepNames() []string
	ValidateRaw(step int, data []byte) error
}

// Registry resolves flows by name.
type Registry map[string]Validator

// Register adds flows keyed by their names.
func (r Registry) Register(flows ...Validator) Registry {
	for _, f := range flows {
		r[f.Name()] = f
	}
	return r
}
