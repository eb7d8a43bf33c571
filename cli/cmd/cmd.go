// ABOUTME: Command-line front end for the arbiter simulation - flags with ARBITER_* environment
// ABOUTME: defaults, logger setup, optional capacity prompt, and the run/report action.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/2389-research/arbiter/coordinator"
	"github.com/2389-research/arbiter/events"
	"github.com/2389-research/arbiter/logging"
	"github.com/2389-research/arbiter/simulation"
)

// Version is set at build time.
var Version = "dev"

const envPrefix = "ARBITER_"

func configEnv(key string, defaultVal string) string {
	s := os.Getenv(envPrefix + key)
	if len(s) == 0 {
		return defaultVal
	}
	return s
}

func configInt(key string, defaultVal int) int {
	s := configEnv(key, "")
	if len(s) == 0 {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func configFloat(key string, defaultVal float64) float64 {
	s := configEnv(key, "")
	if len(s) == 0 {
		return defaultVal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func configDuration(key string, defaultVal time.Duration) time.Duration {
	s := configEnv(key, "")
	if len(s) == 0 {
		return defaultVal
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func configBool(key string, defaultVal bool) bool {
	switch strings.ToLower(configEnv(key, "")) {
	case "1", "true", "t", "yes":
		return true
	case "0", "false", "f", "no":
		return false
	default:
		return defaultVal
	}
}

// ArbiterCli is the command-line client.
type ArbiterCli struct {
	app    *cli.App
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// New builds the application. Prompts read from in; the report goes to out
// and log output to errOut.
func New(in io.Reader, out, errOut io.Writer) *ArbiterCli {
	defaults := simulation.DefaultConfig()

	c := &ArbiterCli{
		app:    cli.NewApp(),
		in:     in,
		out:    out,
		errOut: errOut,
	}
	c.app.Name = "arbiter"
	c.app.Usage = "Round-based fair arbitration of a shared resource pool"
	c.app.Version = Version
	c.app.Writer = out
	c.app.ErrWriter = errOut
	c.app.Action = c.cmdRun

	c.app.Flags = []cli.Flag{
		cli.IntFlag{Name: "capacity", Value: configInt("CAPACITY", defaults.Capacity), Usage: fmt.Sprintf("pool capacity (%d-%d)", simulation.MinCapacity, simulation.MaxCapacity)},
		cli.IntFlag{Name: "agents", Value: configInt("AGENTS", defaults.Agents), Usage: "number of competing agents"},
		cli.IntFlag{Name: "rounds", Value: configInt("ROUNDS", defaults.Rounds), Usage: "rounds per agent"},
		cli.DurationFlag{Name: "hold", Value: configDuration("HOLD", defaults.HoldTime), Usage: "how long an agent holds its pair"},
		cli.DurationFlag{Name: "think", Value: configDuration("THINK", defaults.ThinkTime), Usage: "pause between release and rendezvous"},
		cli.DurationFlag{Name: "jitter", Value: configDuration("JITTER", 0), Usage: "random extra added to every hold and think"},
		cli.Int64Flag{Name: "seed", Value: int64(configInt("SEED", 0)), Usage: "random seed, 0 to seed from the clock"},
		cli.Float64Flag{Name: "invite-rate", Value: configFloat("INVITE_RATE", 0), Usage: "max invitations per second, 0 for no limit"},
		cli.StringFlag{Name: "policy", Value: configEnv("POLICY", coordinator.PolicyRandom), Usage: "invitation policy: random or round-robin"},
		cli.StringFlag{Name: "log-level", Value: configEnv("LOG_LEVEL", "info"), Usage: "log level"},
		cli.StringFlag{Name: "log-format", Value: configEnv("LOG_FORMAT", logging.FormatText), Usage: "log format: text or json"},
		cli.BoolFlag{Name: "color", Usage: "force colored log output"},
		cli.BoolFlag{Name: "interactive, i", Usage: "prompt for the pool capacity"},
	}
	return c
}

// Run parses args and runs the simulation.
func (c *ArbiterCli) Run(args []string) error {
	return c.app.Run(args)
}

func (c *ArbiterCli) cmdRun(ctx *cli.Context) error {
	logger, err := logging.New(logging.Options{
		Level:  ctx.String("log-level"),
		Format: ctx.String("log-format"),
		Color:  ctx.Bool("color") || configBool("COLOR", false),
		Output: c.errOut,
	})
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	cfg := simulation.Config{
		Capacity:  ctx.Int("capacity"),
		Agents:    ctx.Int("agents"),
		Rounds:    ctx.Int("rounds"),
		HoldTime:  ctx.Duration("hold"),
		ThinkTime: ctx.Duration("think"),
		Jitter:    ctx.Duration("jitter"),
		Seed:      ctx.Int64("seed"),
		Policy:    ctx.String("policy"),

		InviteRate: ctx.Float64("invite-rate"),
	}
	if ctx.Bool("interactive") || configBool("INTERACTIVE", false) {
		capacity, err := PromptCapacity(c.in, c.out)
		if err != nil {
			return err
		}
		cfg.Capacity = capacity
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := run(runCtx, cfg, logger)
	if err != nil {
		return err
	}
	return PrintReport(c.out, report)
}

func run(ctx context.Context, cfg simulation.Config, logger *logrus.Logger) (*simulation.Report, error) {
	bus := events.NewBus()
	sub := bus.SubscribeBuffered(eventBuffer(cfg))
	done := make(chan struct{})
	go func() {
		defer close(done)
		logging.NewReporter(logger).Run(ctx, sub)
	}()

	sim, err := simulation.New(cfg,
		simulation.WithPublisher(bus),
		simulation.WithLogger(logger),
	)
	if err != nil {
		bus.Close()
		<-done
		return nil, err
	}
	report, err := sim.Run(ctx)
	bus.Close()
	<-done
	if dropped := bus.Dropped(); dropped > 0 {
		logger.WithField("dropped", dropped).Warn("Event reporter fell behind")
	}
	return report, err
}

// eventBuffer sizes the reporter subscription so a slow terminal does not
// drop lifecycle events on short runs.
func eventBuffer(cfg simulation.Config) int {
	perRound := cfg.Agents*12 + 2
	n := perRound * cfg.Rounds
	if n < events.DefaultBufferSize {
		return events.DefaultBufferSize
	}
	if n > 1<<16 {
		return 1 << 16
	}
	return n
}
