package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reflow_oven/internal/config"
	"reflow_oven/internal/controller"
	"reflow_oven/internal/handlers"
	"reflow_oven/internal/hardware/gpio"
	"reflow_oven/internal/hardware/thermocouple"
	"reflow_oven/internal/logger"
	"reflow_oven/internal/monitor"
	"reflow_oven/internal/mqtt"
	"reflow_oven/internal/pid"
	"reflow_oven/internal/repository"
	"reflow_oven/internal/repository/db"
	"reflow_oven/internal/server"
	"reflow_oven/internal/service"
	"reflow_oven/internal/telemetry"
	"reflow_oven/internal/timer"

	"github.com/spf13/cobra"
)

const (
	simTick         = 200 * time.Millisecond
	stateSaveTick   = 1 * time.Second
	sensorMaxAge    = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the oven controller and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

// plant is the sensor and heater pair the controller drives.
type plant struct {
	sensor  controller.TemperatureSensor
	heater  controller.HeaterActuator
	sim     *service.SimulatorService
	closers []io.Closer
}

func (p *plant) Close(log *logger.Logger) {
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			log.Warnw("hardware_close_failed", "err", err)
		}
	}
}

// buildPlant selects the sensor and heater backends. Either side may be
// simulated; both simulated sides share one thermal model.
func buildPlant(ctx context.Context, s config.Settings, events repository.EventRepo) (*plant, error) {
	p := &plant{}
	simulator := func() *service.SimulatorService {
		if p.sim == nil {
			p.sim = service.NewSimulatorService(events, service.PlantParams{
				AmbientC:      s.Simulator.AmbientC,
				HeatRateCPerS: s.Simulator.HeatRateCPerS,
				CoolCoeffPerS: s.Simulator.CoolCoeffPerS,
				InitialC:      s.Simulator.InitialC,
			})
		}
		return p.sim
	}

	switch s.Sensor.Kind {
	case config.KindSimulated:
		p.sensor = simulator()
	case config.KindSerial:
		ss := thermocouple.NewSerialSensor(s.Sensor.Serial.Port, s.Sensor.Serial.Baud, sensorMaxAge)
		if err := ss.Open(ctx); err != nil {
			return nil, err
		}
		p.sensor = ss
		p.closers = append(p.closers, ss)
	default:
		return nil, &controller.ConfigError{Key: "sensor.kind", Reason: fmt.Sprintf("unknown kind %q", s.Sensor.Kind)}
	}

	switch s.Heater.Kind {
	case config.KindSimulated:
		p.heater = simulator()
	case config.KindGPIO:
		relay, err := gpio.NewRealRelay(s.Heater.Chip, s.Heater.Line, s.Heater.ActiveLow)
		if err != nil {
			p.Close(logger.Nop())
			return nil, err
		}
		p.heater = relay
		p.closers = append(p.closers, relay)
	default:
		p.Close(logger.Nop())
		return nil, &controller.ConfigError{Key: "heater.kind", Reason: fmt.Sprintf("unknown kind %q", s.Heater.Kind)}
	}
	return p, nil
}

// buildSinks returns the telemetry sinks and the MQTT publisher, if any.
// An unreachable broker disables MQTT rather than the oven.
func buildSinks(s config.Settings, repos *repository.Repository, m *monitor.Metrics, dropped func() uint64, log *logger.Logger) ([]telemetry.Sink, mqtt.Publisher) {
	sinks := []telemetry.Sink{telemetry.NewPersistSink(repos.EventRepo, repos.SampleRepo)}
	if m != nil {
		sinks = append(sinks, telemetry.NewMetricsSink(m, dropped))
	}
	if s.MQTT.Broker == "" {
		return sinks, nil
	}
	pub, err := mqtt.NewRealPublisher(s.MQTT.Broker, s.MQTT.ClientID, s.MQTT.TopicPrefix)
	if err != nil {
		log.Warnw("mqtt_disabled", "broker", s.MQTT.Broker, "err", err)
		return sinks, nil
	}
	log.Infow("mqtt_connected", "broker", s.MQTT.Broker, "prefix", s.MQTT.TopicPrefix)
	return append(sinks, telemetry.NewMQTTSink(pub)), pub
}

func serve(configPath string) error {
	v, err := config.Load(configPath)
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(v)
	if err != nil {
		return err
	}
	tuning, err := config.LoadTuning(v)
	if err != nil {
		return err
	}

	log := logger.Get(settings.Log.Level)

	pf, prof, err := loadProfile(settings.Profile.Path)
	if err != nil {
		return err
	}

	conn, err := openDB(settings.DB.Path, log)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("sqlite_close_failed", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	// Background goroutines stop on ctx.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pl, err := buildPlant(ctx, settings, repos.EventRepo)
	if err != nil {
		return err
	}
	defer pl.Close(log)

	var metrics *monitor.Metrics
	if settings.Metrics.Enabled {
		metrics = monitor.New()
	}

	var hub *telemetry.Hub
	sinks, pub := buildSinks(settings, repos, metrics, func() uint64 { return hub.Dropped() }, log)
	if pub != nil {
		defer func() { _ = pub.Close() }()
	}
	hub = telemetry.NewHub(telemetry.Options{
		ExpectedSamples: telemetry.ExpectedSamples(prof),
		QueueSize:       settings.TelemetryQueue,
		Log:             log.Named("telemetry"),
	}, sinks...)

	loop, err := pid.New(settings.PID)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(
		controller.Config{
			Tuning: tuning,
			Sensor: controller.SensorRange{MinC: settings.Sensor.MinC, MaxC: settings.Sensor.MaxC},
		},
		controller.Dependencies{
			Sensor:    pl.sensor,
			Heater:    pl.heater,
			PID:       loop,
			Profile:   pf,
			Display:   hub,
			Alerts:    hub,
			Scheduler: timer.NewTickerScheduler(ctx),
			Clock:     timer.SystemClock{},
		},
		log.Named("controller"),
	)
	if err != nil {
		return err
	}

	services := service.NewService(repos, service.Deps{
		Controller:  ctrl,
		Runs:        hub,
		Profile:     ctrl.Profile(),
		ProfileName: pf.Name,
		Metrics:     metrics,
		SigningKey:  settings.Auth.SigningKey,
		Log:         log.Named("service"),
	})
	monitoring := service.NewMonitoringService(ctrl, hub, repos.StateRepo, metrics)

	go hub.Run(ctx)
	go monitoring.Run(ctx, stateSaveTick)
	if pl.sim != nil {
		go pl.sim.Run(ctx, simTick)
	}

	var opts []handlers.Option
	if metrics != nil {
		opts = append(opts, handlers.WithMetrics(metrics.Handler()))
	}
	apiHandler := handlers.NewHandler(services, log.Named("http"), opts...)

	srv := &server.Server{}
	errCh := runHTTPServer(srv, settings.Port, apiHandler)
	log.Infow("oven_ready",
		"port", settings.Port,
		"profile", pf.Name,
		"sensor", settings.Sensor.Kind,
		"heater", settings.Heater.Kind,
		"sampling_hz", tuning.SamplingHz,
	)

	serveErr := waitForShutdown(errCh)

	// The heater must be off before anything else goes away.
	ctrl.StopRun()
	hub.EndRun("shutdown")
	log.Infow("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server_forced_shutdown", "err", err)
	}
	return serveErr
}

// openDB initializes the SQLite database.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		path = "app.db"
	}
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine. The channel
// yields its terminal error.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(port, handler.InitRoutes())
	}()
	return errCh
}

// waitForShutdown blocks until a termination signal or a server failure.
func waitForShutdown(errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		return nil
	case err := <-errCh:
		if err == nil {
			return errors.New("http server stopped unexpectedly")
		}
		return fmt.Errorf("http server: %w", err)
	}
}
