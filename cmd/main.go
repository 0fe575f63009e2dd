package main

import (
	"agenda/internal/api"
	"agenda/internal/caldav"
	"agenda/internal/config"
	"agenda/internal/google"
	"agenda/internal/metrics"
	"agenda/internal/models"
	"agenda/internal/reservation"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// calendarProvider is what every configured backend offers.
type calendarProvider interface {
	reservation.Calendar
	CalendarName(ctx context.Context, calendarID string) (string, error)
}

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "agenda",
		Usage: "Book spaces on shared calendars, refusing overlapping reservations.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to an optional TOML config file.", EnvVars: []string{"AGENDA_CONFIG"}},
		},
		Commands: []*cli.Command{
			serveCommand(),
			bookCommand(),
			spacesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP reservation endpoint.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := load(c)
			if err != nil {
				return err
			}

			svc, _, err := newService(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			var m *metrics.Metrics
			if cfg.Metrics.Enabled {
				m = metrics.New("agenda")
				logger.Info("Metrics enabled.", "path", cfg.Metrics.Path)
			}

			router := api.NewRouter(logger, svc, api.RouterOptions{
				RoutePrefix: cfg.Server.RoutePrefix,
				Metrics:     m,
				MetricsPath: cfg.Metrics.Path,
			})

			srv := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
				WriteTimeout: cfg.Server.WriteTimeoutDuration(),
				IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting server.", "addr", srv.Addr, "route", cfg.Server.RoutePrefix+"/agendar")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			select {
			case err, ok := <-errCh:
				if ok {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down server.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logger.Info("Server stopped.")
			return nil
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book a single reservation from the command line.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Required: true, Usage: "Event date, e.g. 2024-06-01."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Local start time, e.g. 19:00."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "Local end time, e.g. 21:00."},
			&cli.StringFlag{Name: "space", Required: true, Usage: "Configured space name."},
			&cli.StringFlag{Name: "title", Required: true, Usage: "Event title."},
			&cli.StringFlag{Name: "owner", Required: true, Usage: "Person responsible for the event."},
			&cli.StringFlag{Name: "phone", Required: true, Usage: "Contact phone."},
			&cli.StringFlag{Name: "notes", Usage: "Optional notes."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := load(c)
			if err != nil {
				return err
			}

			svc, _, err := newService(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			event, err := svc.Book(c.Context, models.ReservationRequest{
				EventDate:    c.String("date"),
				StartTime:    c.String("start"),
				EndTime:      c.String("end"),
				Space:        c.String("space"),
				EventTitle:   c.String("title"),
				EventOwner:   c.String("owner"),
				ContactPhone: c.String("phone"),
				EventNotes:   c.String("notes"),
			})
			msg, _ := api.Outcome(err)
			fmt.Println(msg)
			if err != nil {
				return cli.Exit("", 1)
			}
			if event.Link != "" {
				fmt.Println(event.Link)
			}
			return nil
		},
	}
}

func spacesCommand() *cli.Command {
	return &cli.Command{
		Name:  "spaces",
		Usage: "List the configured spaces and check each calendar is reachable.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := load(c)
			if err != nil {
				return err
			}

			svc, provider, err := newService(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			spaces := svc.Spaces()
			failed := 0
			for _, name := range spaces.Names() {
				id, _ := spaces.CalendarID(name)
				calName, err := provider.CalendarName(c.Context, id)
				if err != nil {
					failed++
					logger.Error("Calendar not reachable", "space", name, "calendarID", id, "error", err)
					fmt.Printf("%s\t%s\tERROR\n", name, id)
					continue
				}
				fmt.Printf("%s\t%s\t%s\n", name, id, calName)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d calendars not reachable", failed, spaces.Len())
			}
			return nil
		},
	}
}

func load(c *cli.Context) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, setupLogger(cfg.LogLevel), nil
}

func newService(ctx context.Context, logger *slog.Logger, cfg config.Config) (*reservation.Service, calendarProvider, error) {
	provider, err := newCalendar(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	svc, err := reservation.NewService(logger, provider, models.NewSpaceMapping(cfg.Spaces), reservation.Options{
		Location:          loc,
		SerializeBookings: cfg.Calendar.SerializeBookings,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reservation service: %w", err)
	}
	if cfg.Calendar.SerializeBookings {
		logger.Info("Bookings are serialized per calendar within this process.")
	}
	return svc, provider, nil
}

func newCalendar(ctx context.Context, logger *slog.Logger, cfg config.Config) (calendarProvider, error) {
	switch cfg.Calendar.Provider {
	case config.ProviderCalDAV:
		client, err := caldav.NewClient(logger, cfg.CalDAV.Endpoint, cfg.CalDAV.Username, cfg.CalDAV.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		logger.Info("Initialized CalDAV client.", "endpoint", cfg.CalDAV.Endpoint)
		return client, nil
	default:
		creds, err := google.ReadCredentials(cfg.Google.CredentialsJSON, cfg.Google.CredentialsFile)
		if err != nil {
			return nil, err
		}
		client, err := google.NewClient(ctx, logger, creds, cfg.Calendar.ApplicationName)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
		logger.Info("Initialized Google Calendar client.", "spaces", len(cfg.Spaces))
		return client, nil
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
