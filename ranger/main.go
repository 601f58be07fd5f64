// Command ranger captures distance readings from two ultrasonic range
// sensors, alternating between them to avoid cross-talk, and saves the
// collected measurements as CSV.
//
// Usage:
//
//	ranger -config config.yaml           continuous capture until Ctrl+C
//	ranger -once                         a single bounded cycle
//	ranger -mock                         simulated sensors, no hardware
//	ranger -list-ports                   show serial devices and exit
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/capture"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/config"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/export"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/publish"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/uart"
)

func main() {
	var (
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag     = flag.Bool("mock", false, "Use simulated sensors instead of GPIO hardware")
		onceFlag     = flag.Bool("once", false, "Run a single capture cycle and exit")
		durationFlag = flag.Duration("duration", 0, "Stop continuous capture after this long (0 = until interrupted)")
		dataDirFlag  = flag.String("out", "", "Data directory override for CSV export")
		listFlag     = flag.Bool("list-ports", false, "List available serial ports and exit")
		verboseFlag  = flag.Bool("v", false, "Print every measurement as it arrives")
	)
	flag.Parse()

	if *listFlag {
		ports, err := uart.Ports()
		if err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dataDirFlag != "" {
		cfg.Export.DataDir = *dataDirFlag
	}

	chanA, chanB, cleanup, err := buildChannels(cfg, *mockFlag)
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	var pub *publish.Publisher
	if cfg.Publish.Enabled {
		pub, err = publish.New(cfg.Publish.Broker, "ranger", cfg.Publish.Topic)
		if err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		defer pub.Close()
	}

	for _, ch := range []*sensor.Channel{chanA, chanB} {
		attachCallbacks(ch, pub, *verboseFlag)
	}

	sched := capture.New(chanA, chanB, capture.Options{
		ReadingsPerTrigger: cfg.Capture.ReadingsPerTrigger,
		MaxWaitPerReading:  cfg.Calibration.MaxWait,
		QuietInterval:      cfg.Capture.QuietInterval,
		CycleDelay:         cfg.Capture.CycleDelay,
	})

	if *onceFlag {
		a, b := sched.RunOneCycle()
		fmt.Printf("Captured %d readings from %s, %d from %s\n",
			len(a), chanA.Name(), len(b), chanB.Name())
	} else {
		runContinuous(sched, *durationFlag)
	}

	finish(sched, cfg.Export.DataDir)
}

func attachCallbacks(ch *sensor.Channel, pub *publish.Publisher, verbose bool) {
	if pub == nil && !verbose {
		return
	}
	ch.OnMeasurement(func(m sensor.Measurement) {
		if verbose {
			fmt.Printf("  [%s] reading %2d: %6.2f (%7.1f raw)\n",
				m.SensorName, m.Sequence, m.Distance, m.RawTiming)
		}
		if pub != nil {
			pub.Publish(m)
		}
	})
}

func runContinuous(sched *capture.Scheduler, maxDuration time.Duration) {
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	fmt.Println("Capturing continuously... press Ctrl+C to stop")
	if maxDuration > 0 {
		select {
		case <-stop:
		case <-time.After(maxDuration):
		}
	} else {
		<-stop
	}

	fmt.Println("\nStopping capture...")
	sched.Stop()
}

func finish(sched *capture.Scheduler, dataDir string) {
	chanA, chanB := sched.Channels()
	order := []string{chanA.Name(), chanB.Name()}
	bySensor := map[string][]sensor.Measurement{
		chanA.Name(): chanA.History().Snapshot(),
		chanB.Name(): chanB.History().Snapshot(),
	}

	total := len(bySensor[order[0]]) + len(bySensor[order[1]])
	fmt.Printf("Cycles completed: %d, measurements collected: %d\n", sched.Cycles(), total)

	if total > 0 {
		path, err := export.Save(dataDir, order, bySensor)
		if err != nil {
			log.Printf("CSV export failed: %v", err)
		} else {
			fmt.Printf("Saved %d measurements to %s\n", total, path)
		}
	}

	for _, name := range order {
		st, err := sched.Statistics(name)
		if err != nil {
			continue
		}
		if st.Count == 0 {
			fmt.Printf("%s: no measurements\n", name)
			continue
		}
		fmt.Printf("%s: %d readings, min=%.2f max=%.2f mean=%.2f\n",
			name, st.Count, st.Min, st.Max, st.Mean)
	}
}
