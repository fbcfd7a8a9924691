package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "inverterd2mqtt/internal/adapter/actor"
	"inverterd2mqtt/internal/config"
	"inverterd2mqtt/internal/core/actor"
	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/service"
	"inverterd2mqtt/internal/server"
	"inverterd2mqtt/internal/util/actorutil"
	"inverterd2mqtt/pkg/inverterd"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// thresholds start from config; a zero under-voltage is seeded from the
	// inverter rated information once the monitor boots
	store := service.NewThresholdStore(cfg.MonitorConfig.Thresholds())

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, store, inverterdActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => INVERTERD2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("INVERTERD2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("inverterd2mqtt")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Inverterd.Host == "" {
		return nil, errors.New("config param inverterd.host is required")
	}
	if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.MonitorConfig.ACCurrentRangeMin <= 0 || cfg.MonitorConfig.ACCurrentRangeMax < cfg.MonitorConfig.ACCurrentRangeMin {
		return nil, errors.New("config params monitor.ac_current_range_min/max must define a valid range")
	}
	if cfg.MonitorConfig.BatteryChargingVoltage <= 0 || cfg.MonitorConfig.BatteryDischargingVoltage <= 0 {
		return nil, errors.New("config params monitor.battery_charging_voltage and monitor.battery_discharging_voltage are required")
	}

	return &cfg, nil
}

func inverterdActorProvider(cfg *config.Config, logger *zap.Logger) actor.InverterdActorProvider {
	return func() *adactor.InverterdActor {
		client := inverterd.NewClient(cfg.Inverterd.Host, cfg.Inverterd.Port,
			time.Duration(cfg.Inverterd.TimeoutMillis)*time.Millisecond)
		return adactor.NewInverterdActor(client, client, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "inverterd2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("inverterd.port", 8305)
	viper.SetDefault("inverterd.timeout_millis", 5000)
	viper.SetDefault("monitor.poll_interval_millis", 2000)
	viper.SetDefault("monitor.battery_charging_voltage", 48.4)
	viper.SetDefault("monitor.battery_discharging_voltage", 51.0)
	viper.SetDefault("monitor.battery_under_voltage", 0)
	viper.SetDefault("monitor.ac_current_range_min", 2)
	viper.SetDefault("monitor.ac_current_range_max", 30)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
