package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

var (
	errProfilerAddress = errors.New("profiler server address is required when profiling is enabled")
	errProfilerName    = errors.New("profiler application name is required when profiling is enabled")
)

// ProfilerConfig holds Pyroscope continuous profiling configuration.
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	// Tags are attached to every profile; HOSTNAME is added when set.
	Tags map[string]string
	// Contention adds mutex and block profiles on top of the default set.
	Contention bool
}

// contentionRate samples one in n mutex and block events.
const contentionRate = 5

// baseProfiles cover what PDF assembly spends: CPU in layout and
// compression, and the allocations of whole documents held in memory.
var baseProfiles = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiler owns a running Pyroscope session. A disabled Profiler is inert.
type Profiler struct {
	session *pyroscope.Profiler
	once    sync.Once
	stopErr error
}

// StartProfiler starts a Pyroscope session, or returns an inert Profiler when
// profiling is disabled.
func StartProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return &Profiler{}, nil
	}
	if cfg.ServerAddress == "" {
		return nil, errProfilerAddress
	}
	if cfg.ApplicationName == "" {
		return nil, errProfilerName
	}

	if cfg.Contention {
		runtime.SetMutexProfileFraction(contentionRate)
		runtime.SetBlockProfileRate(contentionRate)
	}

	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            profileTags(cfg.Tags),
		ProfileTypes:    profileTypes(cfg.Contention),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Bool("contention", cfg.Contention),
	)
	return &Profiler{session: session}, nil
}

func profileTags(extra map[string]string) map[string]string {
	tags := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		tags[k] = v
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}
	return tags
}

func profileTypes(contention bool) []pyroscope.ProfileType {
	types := append([]pyroscope.ProfileType(nil), baseProfiles...)
	if contention {
		types = append(types,
			pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration,
		)
	}
	return types
}

// Running reports whether a session is active.
func (p *Profiler) Running() bool {
	return p != nil && p.session != nil
}

// Stop flushes and stops the session. Later calls return the first result.
func (p *Profiler) Stop() error {
	if p == nil {
		return nil
	}
	p.once.Do(func() {
		if p.session == nil {
			return
		}
		if err := p.session.Stop(); err != nil {
			p.stopErr = fmt.Errorf("failed to stop profiler: %w", err)
		}
	})
	return p.stopErr
}
