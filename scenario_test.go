package cosim_test

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/hwlib"
	"github.com/db47h/cosim/hwsim"
	"github.com/db47h/cosim/internal/logging"
	"github.com/db47h/cosim/simkernel"
	"github.com/db47h/cosim/widget"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func design(lang cosim.Language, width int) cosim.SessionConfig {
	return cosim.SessionConfig{
		Design:   "xsim.dir/" + widget.DesignName(lang, width) + "/xsimk.so",
		Language: lang,
	}
}

func newRunner(b cosim.Backend) *cosim.Runner {
	return &cosim.Runner{Backend: b, Logger: logging.Discard()}
}

func simRunner() *cosim.Runner {
	return newRunner(&simkernel.Backend{Registry: widget.NewRegistry()})
}

func TestRunner_latency(t *testing.T) {
	r := simRunner()
	for _, lang := range cosim.Languages {
		for _, w := range widget.Widths {
			seq := &cosim.Sequential{Count: 40, Skew: 3}
			seq.Base.Sub(cosim.Mask(w), uint256.NewInt(20))
			for _, p := range []cosim.Policy{
				seq,
				&cosim.Random{Count: 40, Rand: rand.New(rand.NewSource(int64(w)))},
				cosim.Boundary{},
			} {
				sc := cosim.Scenario{Name: p.Name(), Width: w, Policy: p, Session: design(lang, w)}
				t.Run(sc.ID(), func(t *testing.T) {
					res, err := r.Run(context.Background(), sc)
					require.NoError(t, err)
					require.True(t, res.Passed)
					require.Nil(t, res.Violation)
					require.Equal(t, -1, res.FaultCycle)
					require.Equal(t, p.Name(), res.Policy)
					require.Equal(t, lang, res.Language)
					if _, ok := p.(cosim.Boundary); ok {
						require.Equal(t, 10, res.Cycles)
					} else {
						require.Equal(t, 40, res.Cycles)
					}
				})
			}
		}
	}
}

func TestRunner_counting(t *testing.T) {
	if testing.Short() {
		t.Skip("long sweep")
	}
	res, err := simRunner().Run(context.Background(), cosim.Scenario{
		Name:    "counting",
		Width:   16,
		Policy:  &cosim.Sequential{Count: 2000},
		Session: design(cosim.Verilog, 16),
	})
	require.NoError(t, err)
	require.Equal(t, 2000, res.Cycles)
	require.Zero(t, res.Skipped)
}

func TestRunner_wide(t *testing.T) {
	for _, lang := range cosim.Languages {
		p := &cosim.Sequential{Count: 10, Skew: 1}
		p.Base.SetUint64(1<<32 + 1)
		res, err := simRunner().Run(context.Background(), cosim.Scenario{
			Name:    "counting_wide",
			Width:   64,
			Policy:  p,
			Session: design(lang, 64),
		})
		require.NoError(t, err, lang.String())
		require.Equal(t, 10, res.Cycles)
	}
}

func TestRunner_fault(t *testing.T) {
	r := simRunner()
	for _, lang := range cosim.Languages {
		sc := cosim.Scenario{
			Name:    "fault",
			Width:   16,
			Session: design(lang, 16),
			Fault:   &cosim.FaultInjection{Idle: 10, Active: 10},
		}
		res, err := r.Run(context.Background(), sc)
		require.NoError(t, err)
		require.True(t, res.Passed)
		require.Equal(t, "fault", res.Policy)
		require.Equal(t, 10, res.FaultCycle)
		require.Equal(t, 10, res.Cycles)

		sc.Session.Design = "xsim.dir/" + widget.DesignName(lang, 16) + widget.SilentSuffix + "/xsimk.so"
		res, err = r.Run(context.Background(), sc)
		var usc *cosim.UnexpectedSilentCompletion
		require.ErrorAs(t, err, &usc)
		require.Equal(t, 20, usc.Cycles)
		require.False(t, res.Passed)
		require.Equal(t, -1, res.FaultCycle)
		require.ErrorAs(t, res.Err, &usc)
	}
}

// faultyDesign returns a 16 bits design whose adder sees b | a[3] in place
// of b on its lowest bit.
func faultyDesign(t *testing.T) *simkernel.Registry {
	t.Helper()
	reg := hwlib.Register(16)
	chip, err := hwsim.Chip("faulty",
		hwsim.In("clk, a[16], b[16], fault"),
		hwsim.Out("sum[16], product[32]"),
		hwsim.Parts{
			reg("in[0..15]=a[0..15], clk=clk, out[0..15]=ra[0..15]"),
			reg("in[0..15]=b[0..15], clk=clk, out[0..15]=rb[0..15]"),
			hwlib.Or("a=rb[0], b=ra[3], out=rb0"),
			hwlib.AdderN(16)("a[0..15]=ra[0..15], b[0]=rb0, b[1..15]=rb[1..15], out[0..15]=sum[0..15]"),
			hwlib.MulN(16)("a[0..15]=ra[0..15], b[0..15]=rb[0..15], out[0..31]=product[0..31]"),
		})
	require.NoError(t, err)
	r := simkernel.NewRegistry()
	require.NoError(t, r.Register(&simkernel.Design{
		Name:     "faulty",
		Language: cosim.VHDL,
		Ports:    widget.Ports(16),
		Clock:    cosim.PortClk,
		Chip:     chip,
	}))
	return r
}

func TestRunner_violation(t *testing.T) {
	r := newRunner(&simkernel.Backend{Registry: faultyDesign(t)})
	res, err := r.Run(context.Background(), cosim.Scenario{
		Name:    "counting",
		Width:   16,
		Policy:  &cosim.Sequential{Count: 100},
		Session: cosim.SessionConfig{Design: "xsim.dir/faulty/xsimk.so", Language: cosim.VHDL},
	})
	var v *cosim.InvariantViolation
	require.ErrorAs(t, err, &v)
	require.False(t, res.Passed)
	require.Equal(t, v, res.Violation)
	require.Equal(t, 9, v.Cycle)
	require.Equal(t, 9, res.Cycles)
	require.EqualValues(t, 8, v.Expected.A.Uint64())
	require.EqualValues(t, 8, v.Expected.B.Uint64())
	require.EqualValues(t, 16, v.Expected.Sum.Uint64())
	require.EqualValues(t, 17, v.Sum.Uint64())
	require.EqualValues(t, 64, v.Product.Uint64())
}

func TestRunner_metavalues(t *testing.T) {
	k := newPipeKernel(16, 2)
	res, err := newRunner(&fakeBackend{k: k}).Run(context.Background(), cosim.Scenario{
		Name:   "boundary",
		Width:  16,
		Policy: cosim.Boundary{},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, 10, res.Cycles)
	require.Equal(t, 1, k.closes)

	// metavalues once the model is latched are a failure
	k = newPipeKernel(16, 1000)
	res, err = newRunner(&fakeBackend{k: k}).Run(context.Background(), cosim.Scenario{
		Name:   "boundary",
		Width:  16,
		Policy: cosim.Boundary{},
	})
	var me *cosim.MetaValueError
	require.ErrorAs(t, err, &me)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, 1, res.Cycles)
	require.Equal(t, 1, k.closes)
}

func TestRunner_errors(t *testing.T) {
	r := simRunner()
	_, err := r.Run(context.Background(), cosim.Scenario{Name: "x", Width: 16, Session: design(cosim.VHDL, 16)})
	require.ErrorContains(t, err, "no stimulus policy")
	_, err = r.Run(context.Background(), cosim.Scenario{Name: "x", Width: 200, Policy: cosim.Boundary{}, Session: design(cosim.VHDL, 16)})
	require.ErrorContains(t, err, "unsupported operand width")

	// design narrower than the scenario
	_, err = r.Run(context.Background(), cosim.Scenario{Name: "x", Width: 32, Policy: cosim.Boundary{}, Session: design(cosim.VHDL, 16)})
	var re *cosim.RangeError
	require.ErrorAs(t, err, &re)

	k := newPipeKernel(16, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newRunner(&fakeBackend{k: k}).Run(ctx, cosim.Scenario{Name: "x", Width: 16, Policy: cosim.Boundary{}})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, res.Cycles)
	require.Equal(t, 1, k.closes)
}

func TestRunner_RunAll(t *testing.T) {
	var scs []cosim.Scenario
	for i, d := range []string{"widget", "nope", "counter_verilog"} {
		lang := cosim.VHDL
		if i == 2 {
			lang = cosim.Verilog
		}
		scs = append(scs, cosim.Scenario{
			Name:    "s" + strconv.Itoa(i),
			Width:   16,
			Policy:  cosim.Boundary{},
			Session: cosim.SessionConfig{Design: "xsim.dir/" + d + "/xsimk.so", Language: lang},
		})
	}
	rs, err := simRunner().RunAll(context.Background(), scs)
	var le *cosim.KernelLoadError
	require.ErrorAs(t, err, &le)
	require.Len(t, rs, 3)
	require.True(t, rs[0].Passed)
	require.False(t, rs[1].Passed)
	require.Zero(t, rs[1].Cycles)
	require.True(t, rs[2].Passed)
	require.Equal(t, "s2", rs[2].Scenario)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rs, err = simRunner().RunAll(ctx, scs)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, rs)
}
