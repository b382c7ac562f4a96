// Package daemon implements the router process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/hop/internal/command"
	"firestige.xyz/hop/internal/config"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/log"
	"firestige.xyz/hop/internal/metrics"
	"firestige.xyz/hop/internal/route"
	"firestige.xyz/hop/internal/router"
	"firestige.xyz/hop/internal/trace"
)

// Daemon manages the hop router process lifecycle.
type Daemon struct {
	// Configuration
	config     *config.Config
	configPath string
	pidFile    string

	// Core components
	routes        *route.Table
	router        *router.Router
	metricsServer *metrics.Server    // nil if metrics disabled
	recorder      *trace.Recorder    // nil if trace disabled
	controlServer *command.UDSServer // nil if control socket disabled

	// Overridable for tests
	discover func(link.Selector, link.Options) (link.Interfaces, error)
	poller   link.Poller

	// Lifecycle management
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan error
	runErr   error
	stopOnce sync.Once
	sigChan  chan os.Signal
	reloadMu sync.Mutex
}

// New loads the configuration and creates a Daemon instance.
func New(configPath, pidFile string) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		pidFile:    pidFile,
		discover:   link.Discover,
		done:       make(chan error, 1),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start brings up every component and launches the event loop.
func (d *Daemon) Start() error {
	// 1. Initialize logging system
	if err := log.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"config":        d.configPath,
		"routing_table": d.config.RoutingTable,
	}).Info("starting hop router")

	// 2. Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 3. Load routing table
	routes, err := route.Load(d.config.RoutingTable)
	if err != nil {
		return fmt.Errorf("failed to load routing table: %w", err)
	}
	d.routes = routes
	log.GetLogger().WithField("routes", routes.Len()).Info("routing table loaded")

	// 4. Discover interfaces and open raw sockets
	sel, err := link.NewSelector(d.config.Interfaces.Match.String(), d.config.Interfaces.Exclude)
	if err != nil {
		return err
	}
	ifaces, err := d.discover(sel, link.Options{
		RecvTimeout:  d.config.Timing.PollTimeout,
		KernelFilter: d.config.Capture.KernelFilter,
	})
	if err != nil {
		return fmt.Errorf("failed to open interfaces: %w", err)
	}

	// 5. Packet trace
	if d.config.Trace.Enabled {
		rec, err := trace.Create(d.config.Trace.Path)
		if err != nil {
			_ = ifaces.Close()
			return fmt.Errorf("failed to start trace: %w", err)
		}
		d.recorder = rec
		trace.Attach(ifaces, rec)
		log.GetLogger().WithField("path", d.config.Trace.Path).Info("packet trace enabled")
	}

	// 6. Router
	d.router, err = router.New(ifaces, routes, router.Options{
		PollTimeout: d.config.Timing.PollTimeout,
		ARPTimeout:  d.config.Timing.ARPTimeout,
		Poller:      d.poller,
	})
	if err != nil {
		_ = ifaces.Close()
		d.closeRecorder()
		return fmt.Errorf("failed to create router: %w", err)
	}

	// 7. Start metrics server
	if err := d.startMetrics(); err != nil {
		_ = d.router.Close()
		d.router = nil
		d.closeRecorder()
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 8. Control socket
	if err := d.startControl(); err != nil {
		if d.metricsServer != nil {
			_ = d.metricsServer.Stop(context.Background())
			d.metricsServer = nil
		}
		_ = d.router.Close()
		d.router = nil
		d.closeRecorder()
		return fmt.Errorf("failed to start control socket: %w", err)
	}

	// 9. Event loop
	go func() {
		d.done <- d.router.Run(d.ctx)
	}()

	log.GetLogger().Info("daemon started successfully")
	return nil
}

// Stop performs graceful shutdown of all daemon components. It is safe to
// call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(d.stop)
}

func (d *Daemon) stop() {
	log.GetLogger().Info("initiating graceful shutdown")

	// 1. Stop the event loop and wait for it to return
	d.cancel()
	if d.router != nil {
		d.runErr = <-d.done
	}

	// 2. Stop answering control requests
	if d.controlServer != nil {
		if err := d.controlServer.Stop(); err != nil {
			log.GetLogger().WithError(err).Error("error stopping control socket")
		}
	}

	// 3. Close sockets
	if d.router != nil {
		stats := d.router.Stats()
		log.GetLogger().WithFields(map[string]interface{}{
			"received":     stats.Received,
			"forwarded":    stats.Forwarded,
			"echo_replies": stats.EchoReplies,
			"icmp_errors":  stats.ICMPErrors,
			"dropped":      stats.Dropped,
			"send_errors":  stats.SendErrors,
			"neighbors":    d.router.Cache().Len(),
		}).Info("router statistics")

		if err := d.router.Close(); err != nil {
			log.GetLogger().WithError(err).Error("error closing interfaces")
		}
	}

	// 4. Stop metrics server
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			log.GetLogger().WithError(err).Error("error stopping metrics server")
		}
	}

	// 5. Close trace file
	d.closeRecorder()

	// 6. Unregister signal handler to prevent goroutine leak
	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	// 7. Remove PID file
	if err := d.removePIDFile(); err != nil {
		log.GetLogger().WithError(err).Error("error removing PID file")
	}

	log.GetLogger().Info("daemon stopped gracefully")
}

// Run blocks until SIGTERM/SIGINT or until the event loop fails. SIGHUP
// reloads the hot-reloadable settings.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	log.GetLogger().Info("daemon running, waiting for signals")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				log.GetLogger().WithField("signal", sig.String()).Info("received shutdown signal")
				d.Stop()
				return nil

			case syscall.SIGHUP:
				if err := d.Reload(); err != nil {
					log.GetLogger().WithError(err).Error("failed to reload config")
				}
			}

		case err := <-d.done:
			// Stop waits on done as well.
			d.done <- err
			if err != nil {
				log.GetLogger().WithError(err).Error("router event loop failed")
			}
			d.Stop()
			return err

		case <-d.ctx.Done():
			d.Stop()
			return d.runErr
		}
	}
}

// Reload re-reads the configuration file. It is called for SIGHUP and from
// the control socket.
// Hot-reloadable: logging. Everything else requires a restart.
func (d *Daemon) Reload() error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	log.GetLogger().WithField("path", d.configPath).Info("reloading configuration")

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	if err := log.Init(newConfig.Log); err != nil {
		return fmt.Errorf("failed to reinitialize logging: %w", err)
	}

	requiresRestart := []string{}
	if newConfig.RoutingTable != d.config.RoutingTable {
		requiresRestart = append(requiresRestart, "routing_table")
	}
	if newConfig.Interfaces.Match.String() != d.config.Interfaces.Match.String() {
		requiresRestart = append(requiresRestart, "interfaces.match")
	}
	if newConfig.Timing != d.config.Timing {
		requiresRestart = append(requiresRestart, "timing")
	}
	if newConfig.Metrics != d.config.Metrics {
		requiresRestart = append(requiresRestart, "metrics")
	}
	if newConfig.Control != d.config.Control {
		requiresRestart = append(requiresRestart, "control")
	}

	newConfig.RoutingTable = d.config.RoutingTable
	newConfig.Interfaces = d.config.Interfaces
	newConfig.Timing = d.config.Timing
	newConfig.Metrics = d.config.Metrics
	newConfig.Control = d.config.Control
	d.config = newConfig

	log.GetLogger().WithFields(map[string]interface{}{
		"hot_reloaded":     []string{"log"},
		"requires_restart": requiresRestart,
	}).Info("configuration reloaded")
	return nil
}

// Router returns the running router, nil before Start.
func (d *Daemon) Router() *router.Router {
	return d.router
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		log.GetLogger().Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	return d.metricsServer.Start(d.ctx)
}

// startControl opens the control socket if enabled. daemon.shutdown cancels
// the daemon context, which Run turns into a graceful Stop.
func (d *Daemon) startControl() error {
	if !d.config.Control.Enabled {
		log.GetLogger().Info("control socket disabled")
		return nil
	}

	handler := command.NewCommandHandler(d.router, d.routes, d)
	handler.SetShutdownFunc(d.cancel)

	d.controlServer = command.NewUDSServer(d.config.Control.Socket, handler)
	return d.controlServer.Listen(d.ctx)
}

func (d *Daemon) closeRecorder() {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Close(); err != nil {
		log.GetLogger().WithError(err).Error("error closing trace file")
	}
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"path": d.pidFile,
		"pid":  pid,
	}).Debug("PID file written")
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}
