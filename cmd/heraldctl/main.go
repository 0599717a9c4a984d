// Command heraldctl starts a Herald proximity engine against a local HCI
// device. It is the thin example/CLI main the governing specification
// marks out of scope for the core (§1) — the counterpart of the teacher's
// own sample.go / examples/ tree, just built on urfave/cli instead of a
// bare flag.Parse.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/herald-go/herald/address"
	"github.com/herald-go/herald/clock"
	"github.com/herald-go/herald/codec"
	"github.com/herald-go/herald/delegate"
	"github.com/herald-go/herald/device"
	"github.com/herald-go/herald/engine"
	"github.com/herald-go/herald/platform/bluez"
)

func main() {
	app := &cli.App{
		Name:  "heraldctl",
		Usage: "run a Herald BLE proximity-detection engine",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "hci-device", Value: 0, Usage: "HCI device index, e.g. 0 for hci0"},
			&cli.IntFlag{Name: "capacity", Value: 32, Usage: "device table capacity"},
			&cli.Int64Flag{Name: "max-concurrent-reads", Value: 1, Usage: "outgoing connection slots"},
			&cli.IntFlag{Name: "max-payload-size", Value: 256, Usage: "max bytes read from the payload characteristic"},
			&cli.UintFlag{Name: "read-interval", Value: 60, Usage: "seconds between successful reads of the same peer"},
			&cli.UintFlag{Name: "expiry", Value: 300, Usage: "seconds of scan silence before a device is evicted"},
			&cli.UintFlag{Name: "rotation-interval", Value: 15 * 60, Usage: "seconds between rotating-identifier refreshes"},
			&cli.StringFlag{Name: "secret-key", Value: "", Usage: "hex-encoded secret key for the rotating identifier; random if omitted"},
			&cli.UintFlag{Name: "country", Value: 826, Usage: "advertised country code"},
			&cli.UintFlag{Name: "state", Value: 1, Usage: "advertised state code"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "panic|fatal|error|warn|info|debug|trace"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("heraldctl: exiting")
	}
}

func run(c *cli.Context) error {
	log := logrus.StandardLogger()
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("heraldctl: parsing log level: %w", err)
	}
	log.SetLevel(level)

	secretKey, err := secretKeyFrom(c.String("secret-key"))
	if err != nil {
		return err
	}

	dev, err := bluez.Open(c.Int("hci-device"))
	if err != nil {
		return fmt.Errorf("heraldctl: opening hci%d: %w", c.Int("hci-device"), err)
	}
	defer dev.Close()

	del := delegate.Delegate{
		DidCreate: func(h delegate.Handle, pseudo address.Pseudo) {
			log.WithField("pseudo", pseudo.String()).Info("heraldctl: new device")
		},
		DidDelete: func(h delegate.Handle, pseudo address.Pseudo) {
			log.WithField("pseudo", pseudo.String()).Info("heraldctl: device expired")
		},
		DidRead: func(h delegate.Handle, pseudo address.Pseudo, payload []byte) {
			log.WithFields(logrus.Fields{
				"pseudo": pseudo.String(),
				"bytes":  len(payload),
			}).Info("heraldctl: payload read")
		},
	}

	cfg := engine.Config{
		Capacity:           c.Int("capacity"),
		MaxConcurrentReads: c.Int64("max-concurrent-reads"),
		MaxPayloadSize:     c.Int("max-payload-size"),
		ReadIntervalSec:    uint32(c.Uint("read-interval")),
		ExpirySec:          uint32(c.Uint("expiry")),
		SweepInterval:      10 * time.Second,
		RotationInterval:   time.Duration(c.Uint("rotation-interval")) * time.Second,

		Connection:     device.Backoff{Base: 8, Rate: 2, Reset: 5},
		HeraldNotFound: device.Backoff{Base: 3600, Rate: 2, Reset: 3},

		Advertiser: bluez.AdvertiserAdapter{Dev: dev},
		Scanner:    bluez.ScannerAdapter{Dev: dev},
		Reader:     bluez.CentralReaderAdapter{Dev: dev},

		Epoch:         0,
		PeriodsPerDay: 96,
		Identity:      codec.NewKeySchedule(secretKey),
		Country:       uint16(c.Uint("country")),
		State:         uint16(c.Uint("state")),

		Delegate: del,
		Log:      log,
	}

	eng, err := engine.New(cfg, clock.NewSystem())
	if err != nil {
		return fmt.Errorf("heraldctl: building engine: %w", err)
	}

	if err := dev.InitScanner(eng.ScanCallback()); err != nil {
		return fmt.Errorf("heraldctl: wiring scan callback: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.StartRadio(); err != nil {
		return fmt.Errorf("heraldctl: starting radio: %w", err)
	}

	eng.Run(ctx)
	log.Info("heraldctl: engine running, ctrl-c to stop")
	<-ctx.Done()
	eng.Stop()
	if err := eng.StopRadio(); err != nil {
		log.WithError(err).Warn("heraldctl: stopping radio")
	}
	return nil
}

func secretKeyFrom(hexKey string) ([]byte, error) {
	if hexKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("heraldctl: generating random secret key: %w", err)
		}
		return key, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("heraldctl: decoding --secret-key: %w", err)
	}
	return key, nil
}
