// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/db47h/cosim/internal/logging"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// FaultInjection turns a scenario into a fault-injection scenario: the fault
// port is held low for Idle cycles, then high for Active cycles. The kernel
// must report a failure during the active phase.
type FaultInjection struct {
	Idle   int
	Active int
}

// Scenario is one run of a design variant against a stimulus policy.
type Scenario struct {
	Name    string
	Width   int    // operand width
	Policy  Policy // ignored for fault-injection scenarios
	Session SessionConfig
	Fault   *FaultInjection
}

// ID returns a string that identifies the scenario in a suite, of the form
// name/language/width.
func (sc *Scenario) ID() string {
	return sc.Name + "/" + sc.Session.Language.String() + "/" + strconv.Itoa(sc.Width)
}

// PolicyName returns the name of the stimulus policy, or "fault" for a
// fault-injection scenario.
func (sc *Scenario) PolicyName() string {
	switch {
	case sc.Fault != nil:
		return "fault"
	case sc.Policy != nil:
		return sc.Policy.Name()
	}
	return ""
}

// Result is the outcome of a scenario.
type Result struct {
	Scenario   string
	Language   Language
	Width      int
	Policy     string
	Passed     bool
	Cycles     int                 // completed clock cycles
	Skipped    int                 // cycles not checked because outputs were not initialized
	Violation  *InvariantViolation // first mismatch, if any
	FaultCycle int                 // cycle at which the kernel reported the injected fault, or -1
	Err        error
	Start      time.Time
	Elapsed    time.Duration
}

// Runner runs scenarios. Each scenario gets its own session, which is closed
// before Run returns.
type Runner struct {
	Backend Backend
	Clock   Clock
	Logger  *slog.Logger // slog.Default() if nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run runs a scenario. The returned Result is never nil. If the scenario
// failed, the error is also returned, wrapped with the scenario ID; use
// errors.As to get to the *InvariantViolation, *KernelFault, etc.
//
// Run stops at the first mismatch or kernel error. ctx is checked once per
// cycle.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	res := &Result{
		Scenario:   sc.Name,
		Language:   sc.Session.Language,
		Width:      sc.Width,
		Policy:     sc.PolicyName(),
		FaultCycle: -1,
		Start:      time.Now(),
	}
	log := r.logger().With("scenario", sc.Name, "language", sc.Session.Language.String(), "width", sc.Width)
	log.Info("scenario start", "design", sc.Session.Design, "policy", res.Policy)

	var err error
	switch {
	case sc.Width < 1 || 2*sc.Width > MaxWidth:
		err = errors.Errorf("unsupported operand width %d", sc.Width)
	case sc.Fault == nil && sc.Policy == nil:
		err = errors.New("no stimulus policy")
	default:
		err = WithSession(r.Backend, sc.Session, func(s *Session) error {
			if sc.Fault != nil {
				return r.inject(ctx, s, &sc, res, log)
			}
			return r.check(ctx, s, &sc, res, log)
		})
	}

	res.Elapsed = time.Since(res.Start)
	res.Err = err
	res.Passed = err == nil
	if err != nil {
		errors.As(err, &res.Violation)
		log.Error("scenario failed", "cycles", res.Cycles, "err", err)
		return res, errors.Wrap(err, sc.ID())
	}
	log.Info("scenario passed", "cycles", res.Cycles, "skipped", res.Skipped, "elapsed", res.Elapsed)
	return res, nil
}

// RunAll runs all scenarios in sequence and returns their results. Failed
// scenarios do not stop the run, but a cancelled context does. The returned
// error is the first scenario error.
func (r *Runner) RunAll(ctx context.Context, scs []Scenario) ([]*Result, error) {
	var first error
	rs := make([]*Result, 0, len(scs))
	for _, sc := range scs {
		if err := ctx.Err(); err != nil {
			if first == nil {
				first = err
			}
			break
		}
		res, err := r.Run(ctx, sc)
		rs = append(rs, res)
		if err != nil && first == nil {
			first = err
		}
	}
	return rs, first
}

func (r *Runner) check(ctx context.Context, s *Session, sc *Scenario, res *Result, log *slog.Logger) error {
	w := sc.Width
	m := NewModel(w)
	trace := log.Enabled(ctx, logging.LevelTrace)

	for v := range sc.Policy.Vectors(w) {
		if err := ctx.Err(); err != nil {
			return err
		}
		cycle := res.Cycles
		if err := r.Clock.Pulse(s); err != nil {
			return err
		}
		if err := writeOperands(s, &v, w); err != nil {
			return err
		}

		exp := m.Expect()
		sum, product, err := readOutputs(s)
		if err != nil {
			var me *MetaValueError
			if m.Latched() || !errors.As(err, &me) {
				return err
			}
			log.Debug("outputs not initialized, cycle not checked", "cycle", cycle, "port", me.Port, "value", me.Value)
			res.Skipped++
		} else {
			if trace {
				log.Log(ctx, logging.LevelTrace, "cycle",
					"cycle", cycle,
					"old_a", exp.A.Dec(), "old_b", exp.B.Dec(),
					"sum", sum.Dec(), "product", product.Dec())
			}
			if err := Check(cycle, exp, sum, product); err != nil {
				return err
			}
		}

		m.Latch(v)
		res.Cycles++
	}
	return nil
}

func writeOperands(s *Session, v *Vector, width int) error {
	a, err := Encode(&v.A, width)
	if err != nil {
		return errors.Wrap(err, "operand a")
	}
	b, err := Encode(&v.B, width)
	if err != nil {
		return errors.Wrap(err, "operand b")
	}
	if err = s.SetPort(PortA, a); err != nil {
		return err
	}
	return s.SetPort(PortB, b)
}

func readOutputs(s *Session) (sum, product *uint256.Int, err error) {
	sv, err := s.GetPort(PortSum)
	if err != nil {
		return nil, nil, err
	}
	pv, err := s.GetPort(PortProduct)
	if err != nil {
		return nil, nil, err
	}
	return Decode(sv), Decode(pv), nil
}

func (r *Runner) inject(ctx context.Context, s *Session, sc *Scenario, res *Result, log *slog.Logger) error {
	f := sc.Fault
	for i := 0; i < f.Idle+f.Active; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		active := i >= f.Idle
		level := BinaryValue("0")
		if active {
			level = "1"
		}
		if err := s.SetPort(PortFault, level); err != nil {
			return err
		}
		if err := r.Clock.Pulse(s); err != nil {
			var kf *KernelFault
			if !errors.As(err, &kf) {
				return err
			}
			if !active {
				return errors.Wrap(err, "kernel fault before injection")
			}
			res.FaultCycle = i
			log.Info("kernel reported injected fault", "cycle", i, "time", kf.Time, "info", kf.Info)
			return nil
		}
		res.Cycles++
	}
	return &UnexpectedSilentCompletion{Cycles: res.Cycles}
}
