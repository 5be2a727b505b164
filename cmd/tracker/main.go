package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/adapters/geolocation/replay"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/ledgerclient"
	"github.com/ogurasousui/employee-location-tracker/internal/core/tracking"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/config"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/logger"
)

func main() {
	var (
		ledgerURL  = flag.String("ledger", "http://localhost:8080", "base URL of the location ledger API")
		employeeID = flag.String("employee", "", "employee record id to track (required)")
		trackPath  = flag.String("track", "assets/tracks/manhattan.yaml", "YAML track to replay as the device position")
		interval   = flag.Duration("interval", tracking.DefaultInterval, "interval between recorded fixes")
		once       = flag.Bool("once", false, "record the current location once and exit")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	if *employeeID == "" {
		log.Fatal("-employee must be set")
	}

	logg := logger.New(config.LoggingConfig{Level: *logLevel, Format: "console"})
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg, *ledgerURL, *employeeID, *trackPath, *interval, *once); err != nil {
		logg.Fatal("tracker stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, logg *zap.Logger, ledgerURL, employeeID, trackPath string, interval time.Duration, once bool) error {
	track, err := replay.LoadTrack(trackPath)
	if err != nil {
		return err
	}

	tracker := tracking.New(employeeID,
		replay.New(*track),
		ledgerclient.New(ledgerURL, 10*time.Second),
		tracking.WithLogger(logg),
		tracking.WithStateListener(func(s tracking.State) {
			fields := []zap.Field{
				zap.String("permission", string(s.Permission)),
				zap.String("activity", string(s.Activity)),
			}
			if s.Position != nil {
				fields = append(fields,
					zap.Float64("latitude", s.Position.Latitude),
					zap.Float64("longitude", s.Position.Longitude),
					zap.Float64("accuracy", s.Position.Accuracy))
			}
			if s.Err != nil {
				fields = append(fields, zap.Error(s.Err))
			}
			logg.Debug("tracker state", fields...)
		}),
	)
	defer tracker.Close()

	perm, err := tracker.CheckPermission(ctx)
	if err != nil {
		return err
	}
	if perm != tracking.PermissionGranted && !tracker.RequestPermission(ctx) {
		return errors.New("location permission was not granted")
	}

	if once {
		loc, err := tracker.RecordCurrentLocation(ctx)
		if err != nil {
			return err
		}
		logg.Info("location recorded", zap.String("id", loc.ID), zap.String("address", loc.Address))
		return nil
	}

	stopTracking, err := tracker.StartTracking(ctx, interval)
	if err != nil {
		return err
	}
	defer stopTracking()

	<-ctx.Done()
	if err := tracker.State().Err; err != nil {
		logg.Warn("last tracking error", zap.Error(err))
	}
	return nil
}
