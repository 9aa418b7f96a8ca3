package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/waffyhq/waffy-go/internal/bus"
	"github.com/waffyhq/waffy-go/internal/classifier"
	"github.com/waffyhq/waffy-go/internal/config"
	"github.com/waffyhq/waffy-go/internal/contextstore"
	"github.com/waffyhq/waffy-go/internal/delivery"
	"github.com/waffyhq/waffy-go/internal/events"
	"github.com/waffyhq/waffy-go/internal/lane"
	"github.com/waffyhq/waffy-go/internal/pipeline"
	"github.com/waffyhq/waffy-go/internal/ratelimit"
	"github.com/waffyhq/waffy-go/internal/respond"
	"github.com/waffyhq/waffy-go/internal/review"
	"github.com/waffyhq/waffy-go/internal/routing"
	"github.com/waffyhq/waffy-go/internal/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the message processing daemon",
	Long: `Run the waffy daemon: consume inbound messages from the bus, process
each through the conversation pipeline, and dispatch replies. Messages from
the same customer are handled strictly in order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		app, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer app.close()

		lanes := lane.NewManager(func(ctx context.Context, msg bus.InboundMessage) error {
			state := app.orchestrator.Process(ctx, msg)
			if state.Aborted() {
				log.Printf("[Serve] %s aborted: %s", msg.MessageID, state.Reason)
			}
			return nil
		})
		defer lanes.Stop()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go app.bus.DispatchOutbound(ctx)
		app.bus.Subscribe("", func(msg bus.OutboundMessage) {
			delivery.LogSender{}.Send(msg)
		})

		log.Printf("[Serve] waffy %s ready, store %s", Version, cfg.Store.Path)

		for {
			select {
			case <-ctx.Done():
				log.Println("[Serve] shutting down")
				return nil
			case msg := <-app.bus.Inbound:
				go func(m bus.InboundMessage) {
					if err := lanes.Submit(ctx, m); err != nil {
						log.Printf("[Serve] submit %s: %v", m.MessageID, err)
					}
				}(msg)
			}
		}
	},
}

// app bundles the wired pipeline and everything that needs closing.
type app struct {
	orchestrator *pipeline.Orchestrator
	bus          *bus.MessageBus
	gateway      *store.SqliteGateway
	contexts     contextstore.Store
	publisher    *events.Publisher
}

func (a *app) close() {
	a.publisher.Close()
	if c, ok := a.contexts.(*contextstore.RedisStore); ok {
		c.Close()
	}
	a.gateway.Close()
}

// buildApp wires the full pipeline from configuration. Optional backends
// (Redis, RabbitMQ, the LLM) degrade instead of failing startup.
func buildApp(cfg config.Config) (*app, error) {
	gateway, err := store.NewSqlite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	window := contextstore.Window{
		Capacity: cfg.Context.Capacity,
		Horizon:  time.Duration(cfg.Context.HorizonMins) * time.Minute,
	}
	var contexts contextstore.Store
	if redisStore := contextstore.NewRedis(cfg.Redis, window); redisStore != nil {
		contexts = redisStore
	} else {
		contexts = contextstore.NewMemory(window)
	}

	book, err := config.LoadBook(cfg.CategoryBook)
	if err != nil {
		gateway.Close()
		return nil, fmt.Errorf("load category book: %w", err)
	}

	var engine classifier.Engine
	if llm, err := classifier.NewLLMEngine(cfg.Classifier); err != nil {
		log.Printf("[Serve] classifier engine unavailable (%v), every message takes the deterministic fallback", err)
		engine = unavailableEngine{err}
	} else {
		engine = llm
	}

	var guard classifier.Guard
	if cfg.Classifier.SafetyCheck {
		guard = classifier.DefaultGuard()
	}

	publisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.Exchange)
	if err != nil {
		log.Printf("[Serve] event broker unavailable, record events disabled: %v", err)
	}

	messageBus := bus.NewMessageBus()
	orchestrator := pipeline.New(pipeline.Options{
		Contexts:        contexts,
		Classifier:      classifier.New(engine, book, guard),
		Router:          routing.New(book),
		Reviewer:        review.New(gateway, cfg.Review),
		Gateway:         gateway,
		Selector:        respond.Selector{AckFiller: cfg.Respond.AckFiller},
		Sender:          delivery.BusSender{Bus: messageBus},
		Limiter:         ratelimit.New(cfg.RateLimit.PerMinute),
		Publisher:       publisher,
		ClassifyTimeout: time.Duration(cfg.Classifier.TimeoutSecs) * time.Second,
		Canonicalize: func(id string) string {
			return review.NormalizePhone(id, cfg.Review.CountryPrefix, cfg.Review.DomesticDigits)
		},
	})

	return &app{
		orchestrator: orchestrator,
		bus:          messageBus,
		gateway:      gateway,
		contexts:     contexts,
		publisher:    publisher,
	}, nil
}

// unavailableEngine stands in when no LLM is configured; the classifier
// adapter turns its errors into the deterministic fallback result.
type unavailableEngine struct{ err error }

func (e unavailableEngine) Generate(context.Context, string, string) (string, error) {
	return "", e.err
}
