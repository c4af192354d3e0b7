// Package wizard drives multi-step forms: each step owns some fields and must validate
// before the form moves on, and one step submits the collected data.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"coinvest/api"
)

var (
	ErrBusy              = errors.New("submission in progress")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrStepInvalid       = errors.New("step has invalid fields")
	ErrEmptyFlow         = errors.New("flow has no steps")
)

type Status int

const (
	Idle Status = iota
	Submitting
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Event int

const (
	EventNext Event = iota
	EventPrevious
	EventUpdate
	EventSubmit
	EventReset
	EventDismiss
)

func (e Event) String() string {
	switch e {
	case EventNext:
		return "next"
	case EventPrevious:
		return "previous"
	case EventUpdate:
		return "update"
	case EventSubmit:
		return "submit"
	case EventReset:
		return "reset"
	case EventDismiss:
		return "dismiss"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// allowed is the transition table. Submitting accepts nothing.
var allowed = map[Status]map[Event]bool{
	Idle: {
		EventNext: true, EventPrevious: true, EventUpdate: true, EventSubmit: true, EventReset: true,
	},
	Submitting: {},
	Succeeded: {
		EventReset: true,
	},
	Failed: {
		EventNext: true, EventPrevious: true, EventUpdate: true, EventSubmit: true, EventReset: true, EventDismiss: true,
	},
}

type FieldKind int

const (
	Text FieldKind = iota
	Secret
	Number
	Choice
)

type Option struct {
	Value string
	Label string
}

type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Placeholder string
	Optional    bool
	Options     []Option
}

// Validator inspects the collected data and returns an error message per failing field.
type Validator func(data map[string]string) map[string]string

type Step struct {
	Name     string
	Fields   []Field
	Validate Validator
	// Submits marks the step whose Next sends the form.
	Submits bool
	// Info renders read-only lines for the step, e.g. a summary or the submission result.
	Info func(data map[string]string, result interface{}) []string
}

type SubmitFunc func(ctx context.Context, data map[string]string) (interface{}, error)

type Flow struct {
	Name   string
	Steps  []Step
	Submit SubmitFunc
}

// Wizard is the running state of one Flow. Steps are numbered from 1.
type Wizard struct {
	flow       Flow
	submitStep int

	mu     sync.Mutex
	step   int
	data   map[string]string
	errors map[string]string
	status Status
	reason string
	result interface{}
}

func New(flow Flow) (*Wizard, error) {
	if len(flow.Steps) == 0 {
		return nil, ErrEmptyFlow
	}
	if flow.Submit == nil {
		return nil, fmt.Errorf("flow %q has no submit function", flow.Name)
	}

	submitStep := len(flow.Steps)
	for i, s := range flow.Steps {
		if s.Submits {
			submitStep = i + 1
			break
		}
	}

	return &Wizard{
		flow:       flow,
		submitStep: submitStep,
		step:       1,
		data:       make(map[string]string),
		errors:     make(map[string]string),
	}, nil
}

func (w *Wizard) Name() string {
	return w.flow.Name
}

func (w *Wizard) Total() int {
	return len(w.flow.Steps)
}

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Current() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flow.Steps[w.step-1]
}

// SubmitStep is the number of the step that sends the form.
func (w *Wizard) SubmitStep() int {
	return w.submitStep
}

func (w *Wizard) IsSubmitStep() bool {
	return w.Step() == w.submitStep
}

// IsResultStep reports whether the current step only displays the submission outcome.
func (w *Wizard) IsResultStep() bool {
	return w.Step() > w.submitStep
}

func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Reason is the failure message while Failed.
func (w *Wizard) Reason() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reason
}

// Result is what the submit function returned on success.
func (w *Wizard) Result() interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

func (w *Wizard) Value(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data[name]
}

func (w *Wizard) Data() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyMap(w.data)
}

func (w *Wizard) Error(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errors[name]
}

func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyMap(w.errors)
}

// InfoLines renders the current step's read-only lines.
func (w *Wizard) InfoLines() []string {
	w.mu.Lock()
	step := w.flow.Steps[w.step-1]
	data := copyMap(w.data)
	result := w.result
	w.mu.Unlock()

	if step.Info == nil {
		return nil
	}
	return step.Info(data, result)
}

func (w *Wizard) guard(e Event) error {
	if w.status == Submitting {
		return ErrBusy
	}
	if !allowed[w.status][e] {
		return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, e, w.status)
	}
	return nil
}

// leaveFailed drops a failure banner once the user acts on the form again.
func (w *Wizard) leaveFailed() {
	if w.status == Failed {
		w.status = Idle
		w.reason = ""
	}
}

// Next validates the current step and advances. On the submit step it submits instead.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if err := w.guard(EventNext); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.step == w.submitStep {
		w.mu.Unlock()
		return w.Submit(ctx)
	}
	defer w.mu.Unlock()

	if errs := w.validate(w.step); len(errs) > 0 {
		w.errors = errs
		return ErrStepInvalid
	}

	w.leaveFailed()
	if w.step < len(w.flow.Steps) {
		w.step++
	}
	w.errors = make(map[string]string)
	return nil
}

// Previous steps back without validating. Data is kept.
func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guard(EventPrevious); err != nil {
		return err
	}
	w.leaveFailed()
	if w.step > 1 {
		w.step--
		w.errors = make(map[string]string)
	}
	return nil
}

// Update stores a field value and clears that field's error only. Editing after a failed
// submit drops the failure banner.
func (w *Wizard) Update(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guard(EventUpdate); err != nil {
		return err
	}
	w.leaveFailed()
	w.data[name] = value
	delete(w.errors, name)
	return nil
}

// Select stores a choice and advances; picking the option is the step's confirmation.
func (w *Wizard) Select(ctx context.Context, name, value string) error {
	if err := w.Update(name, value); err != nil {
		return err
	}
	return w.Next(ctx)
}

// Submit sends the form from the submit step. It returns an error only when the attempt is
// refused; the outcome of the attempt is reported through Status, Reason and Result.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if err := w.guard(EventSubmit); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.step != w.submitStep {
		w.mu.Unlock()
		return fmt.Errorf("%w: submit from step %d of %d", ErrIllegalTransition, w.step, len(w.flow.Steps))
	}
	if errs := w.validate(w.step); len(errs) > 0 {
		w.errors = errs
		w.mu.Unlock()
		return ErrStepInvalid
	}

	w.status = Submitting
	w.reason = ""
	data := copyMap(w.data)
	w.mu.Unlock()

	result, err := w.run(ctx, data)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.status = Failed
		w.reason = api.UserMessage(err)
		w.errors = w.fieldErrors(err)
		return nil
	}

	w.status = Succeeded
	w.result = result
	w.errors = make(map[string]string)
	if w.step < len(w.flow.Steps) {
		w.step++
	}
	return nil
}

func (w *Wizard) run(ctx context.Context, data map[string]string) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s submit panicked: %v", w.flow.Name, r)
		}
	}()
	return w.flow.Submit(ctx, data)
}

// fieldErrors attaches server-side field messages to the fields of this flow.
func (w *Wizard) fieldErrors(err error) map[string]string {
	out := make(map[string]string)

	var verr *api.ValidationError
	if !errors.As(err, &verr) {
		return out
	}
	for _, step := range w.flow.Steps {
		for _, f := range step.Fields {
			if msg := verr.Field(f.Name); msg != "" {
				out[f.Name] = msg
			}
		}
	}
	return out
}

// Dismiss clears a failure banner and returns to editing.
func (w *Wizard) Dismiss() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guard(EventDismiss); err != nil {
		return err
	}
	w.leaveFailed()
	return nil
}

// Reset returns to step 1 with empty data.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guard(EventReset); err != nil {
		return err
	}
	w.step = 1
	w.data = make(map[string]string)
	w.errors = make(map[string]string)
	w.status = Idle
	w.reason = ""
	w.result = nil
	return nil
}

func (w *Wizard) validate(step int) map[string]string {
	v := w.flow.Steps[step-1].Validate
	if v == nil {
		return nil
	}
	return v(copyMap(w.data))
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
