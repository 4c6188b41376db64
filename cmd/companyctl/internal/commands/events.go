package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/companydir/internal/company/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventsCmd struct {
	Brokers []string `help:"Kafka brokers" default:"localhost:9092" env:"COMPANY_KAFKA_BROKERS"`
	Topic   string   `help:"Topic with company change events" default:"company_events"`
	Group   string   `help:"Consumer group; a fresh one is generated when empty"`
}

func (e *EventsCmd) Run(ctx context.Context, globals *Globals) error {
	logger := globals.Logger()
	defer func() { _ = logger.Sync() }()

	group := e.Group
	if group == "" {
		group = "companyctl-" + uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(e.Brokers, group, e.Topic, logger)
	defer consumer.Close()
	consumer.RegisterHandler(printEvent)

	logger.Debug("Tailing company events", zap.Strings("brokers", e.Brokers), zap.String("topic", e.Topic), zap.String("group", group))
	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("failed to consume events: %w", err)
	}
	return nil
}

func printEvent(_ context.Context, event events.Event) error {
	if event.Company == nil {
		_, err := fmt.Fprintf(stdout, "%s\t%s\n", event.OccurredAt.Format("15:04:05"), event.Type)
		return err
	}
	_, err := fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", event.OccurredAt.Format("15:04:05"), event.Type, event.Company.ID, event.Company.Name)
	return err
}
