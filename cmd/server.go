package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/canteen/internal/account"
	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/billing"
	"github.com/ziadkadry99/canteen/internal/config"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/events"
	"github.com/ziadkadry99/canteen/internal/feedback"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
	"github.com/ziadkadry99/canteen/internal/mail"
	"github.com/ziadkadry99/canteen/internal/menu"
	"github.com/ziadkadry99/canteen/internal/metrics"
	"github.com/ziadkadry99/canteen/internal/notifications"
	"github.com/ziadkadry99/canteen/internal/orders"
	"github.com/ziadkadry99/canteen/internal/server"
	"github.com/ziadkadry99/canteen/internal/transactions"
	"github.com/ziadkadry99/canteen/internal/weeklymenu"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the canteen API server",
	Long:  `Starts the canteen REST API with websocket notifications, health checks and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, database, log, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		if serverPort != 0 {
			cfg.Server.Port = serverPort
		}

		var (
			m        *metrics.Metrics
			gatherer prometheus.Gatherer
		)
		if cfg.Metrics.Enabled {
			reg := metrics.NewRegistry()
			m = metrics.New(reg)
			gatherer = reg
			database.SetMetrics(m)
		}

		publisher, closePublisher, err := newPublisher(cfg, log)
		if err != nil {
			return err
		}
		defer closePublisher()

		sender, err := newMailSender(cfg, log)
		if err != nil {
			return err
		}

		srvCfg := server.Config{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowAll:       cfg.Server.AllowAll,
		}
		srv := server.New(srvCfg, database, m, gatherer, log)

		registerAllRoutes(srv, database, cfg, deps{
			metrics:   m,
			publisher: publisher,
			mail:      sender,
			log:       log,
		})

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown failed", sl.Err(err))
			}
		}()

		log.Info("canteen server starting",
			slog.String("version", Version),
			slog.Int("port", cfg.Server.Port),
			slog.String("database", database.Path()),
		)
		return srv.Start()
	},
}

type deps struct {
	metrics   *metrics.Metrics
	publisher events.Publisher
	mail      mail.Sender
	log       *slog.Logger
}

// registerAllRoutes wires every feature package onto the server router.
func registerAllRoutes(srv *server.Server, database *db.DB, cfg *config.Config, d deps) {
	r := srv.Router()
	auditStore := audit.NewStore(database)
	employeeStore := employees.NewStore(database)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).WithAccounts(employeeStore)
	menuStore := menu.NewStore(database)
	hub := notifications.NewHub(d.log)

	// Accounts and customers
	account.RegisterRoutes(r, account.NewService(employeeStore, tokens, d.mail, cfg.Auth.OTPTTL, d.log))
	employees.RegisterRoutes(r, employeeStore, auditStore, tokens)

	// Menus
	menu.RegisterRoutes(r, menuStore, auditStore, tokens)
	weeklymenu.RegisterRoutes(r, weeklymenu.NewStore(database, menuStore), auditStore, tokens)

	// Transactions are created as orders are delivered.
	txnStore := transactions.NewStore(database)
	txnSvc := transactions.NewService(transactions.Deps{
		Store:     txnStore,
		Employees: employeeStore,
		Audit:     auditStore,
		Events:    d.publisher,
		Log:       d.log,
	})
	transactions.RegisterRoutes(r, txnSvc, tokens)

	orderSvc := orders.NewService(orders.Deps{
		Store:        orders.NewStore(database),
		Employees:    employeeStore,
		Menu:         menuStore,
		Transactions: txnSvc,
		Audit:        auditStore,
		Events:       d.publisher,
		Metrics:      d.metrics,
		Board:        hub,
		CancelWindow: cfg.Orders.CancelWindow,
		Log:          d.log,
	})
	orders.RegisterRoutes(r, orderSvc, tokens)

	billing.RegisterRoutes(r, billing.NewService(billing.Deps{
		Transactions: txnStore,
		Employees:    employeeStore,
		Mail:         d.mail,
		Audit:        auditStore,
		Events:       d.publisher,
		Metrics:      d.metrics,
		Log:          d.log,
	}), tokens)

	// Notifications and feedback
	dispatcher := notifications.NewDispatcher(notifications.NewStore(database), employeeStore, hub, d.log)
	notifications.RegisterRoutes(r, dispatcher, hub, tokens)
	feedback.RegisterRoutes(r, feedback.NewService(feedback.Deps{
		Store:     feedback.NewStore(database),
		Employees: employeeStore,
		Notifier:  dispatcher,
		Log:       d.log,
	}), tokens)

	// Audit Trail
	audit.RegisterRoutes(r, auditStore, tokens)
}

// newPublisher connects to NATS when configured. The returned func closes
// the connection.
func newPublisher(cfg *config.Config, log *slog.Logger) (events.Publisher, func(), error) {
	if cfg.Events.NATSURL == "" {
		return events.Nop{}, func() {}, nil
	}
	p, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to nats: %w", err)
	}
	log.Info("publishing events to nats", slog.String("url", cfg.Events.NATSURL))
	return p, func() { p.Close() }, nil
}

func newMailSender(cfg *config.Config, log *slog.Logger) (mail.Sender, error) {
	if !cfg.Mail.Enabled {
		return mail.NewLogSender(log), nil
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
