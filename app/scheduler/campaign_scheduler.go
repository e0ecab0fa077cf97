// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	businessflow "github.com/thorbis/campaigns/business_flow"
	"github.com/thorbis/campaigns/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CampaignScheduler periodically dispatches scheduled campaigns whose send time has arrived
type CampaignScheduler struct {
	deliveryFlow businessflow.DeliveryFlow
	logger       *log.Logger
	interval     time.Duration
	batchLimit   int

	logFile *lumberjack.Logger
}

func NewCampaignScheduler(
	deliveryFlow businessflow.DeliveryFlow,
	interval time.Duration,
	batchLimit int,
) *CampaignScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchLimit <= 0 {
		batchLimit = 50
	}

	s := &CampaignScheduler{
		deliveryFlow: deliveryFlow,
		interval:     interval,
		batchLimit:   batchLimit,
	}

	// Initialize scheduler-specific logger (to stdout and persistent rotating file)
	if err := s.initSchedulerLogger(); err != nil {
		// Fallback to default stdout logger if file logger init fails
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a rotating file under data/ (or /data)
func (s *CampaignScheduler) initSchedulerLogger() error {
	// Prefer relative data/ then fallback to /data for containerized environments
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		s.logFile = &lumberjack.Logger{
			Filename:   filepath.Join(dir, "scheduler.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, s.logFile)
		// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return os.ErrPermission
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *CampaignScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		if s.logFile != nil {
			_ = s.logFile.Close()
		}
	}
}

func (s *CampaignScheduler) runOnce(ctx context.Context) {
	// A tick must finish before the next one can pile up work; sends within a
	// tick run sequentially so the bound is generous
	tickCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	dispatched, err := s.deliveryFlow.DispatchDue(tickCtx, utils.UTCNow(), s.batchLimit)
	if err != nil {
		s.logger.Printf("scheduler: dispatch due campaigns failed: %v", err)
		return
	}
	if dispatched > 0 {
		s.logger.Printf("scheduler: dispatched %d scheduled campaigns", dispatched)
	}
}
