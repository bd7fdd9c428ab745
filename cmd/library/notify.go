package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/mail"
	"github.com/tazhibayda/library-service/internal/queue"
	"go.uber.org/zap"
)

func newNotifyCommand() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Consume borrow events and send reader notices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flush, err := setup("library-notify")
			if err != nil {
				return err
			}
			defer flush()
			if cfg.RabbitURL == "" {
				return errors.New("RABBIT_URL is required")
			}
			if workers <= 0 {
				workers = cfg.RabbitConcurrency
			}

			cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue,
				queue.KeyBorrowCreated, queue.KeyBorrowReturned)
			if err != nil {
				return fatal("rabbit consumer", err)
			}
			defer cons.Close()

			log.L().Info("notifier up",
				zap.String("exchange", cfg.RabbitExchange),
				zap.String("queue", cfg.RabbitQueue),
				zap.Int("workers", workers))
			return cons.Consume(cmd.Context(), workers, mail.NewNotifier(nil).Handle)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (default RABBIT_CONCURRENCY)")
	return cmd
}
