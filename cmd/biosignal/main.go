// Command biosignal wires a pipeline.Pipeline to a synthetic chest-strap
// signal generator and the optional WebSocket transport, as a reference
// host for exercising the core embeddable pipeline end to end.
package main

import (
	"context"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biosignal/internal/ingress"
	"biosignal/internal/pipeline"
	"biosignal/internal/transport"
)

const (
	listenAddr   = ":8080"
	ecgBatchSize = 26 // ~200ms of samples at 130Hz
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("Starting biosignal pipeline...")

	ctx, cancel := context.WithCancel(context.Background())

	// 1. Pipeline — single owner of every buffer and component.
	cfg := pipeline.DefaultConfig()
	p := pipeline.New(cfg)

	// 2. Synthetic source, standing in for the sensor's radio link.
	src := newSyntheticSource(cfg.Rates.EcgHz, cfg.Rates.AccHz)

	// 3. Transport — optional, demo-only WebSocket fan-out.
	srv := transport.New(p)
	go func() {
		if err := srv.Start(listenAddr); err != nil {
			log.Printf("transport server stopped: %v", err)
		}
	}()

	// 4. Event-driven fast path: ECG batches, ACC frames, R-R intervals.
	ecgTick := time.NewTicker(time.Duration(float64(ecgBatchSize) / cfg.Rates.EcgHz * float64(time.Second)))
	accTick := time.NewTicker(time.Duration(float64(ecgBatchSize) / cfg.Rates.AccHz * float64(time.Second)))
	rrTick := time.NewTicker(900 * time.Millisecond)
	defer ecgTick.Stop()
	defer accTick.Stop()
	defer rrTick.Stop()

	// 5. Periodic slow path (display window + fiducial recompute).
	displayTick := time.NewTicker(time.Duration(cfg.DisplayTickMs) * time.Millisecond)
	defer displayTick.Stop()

	// 6. Shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("biosignal pipeline running, WebSocket demo at ws://127.0.0.1%s/ws", listenAddr)

	for {
		select {
		case <-ecgTick.C:
			p.AcceptEcgBatch(src.nextEcgBatch(ecgBatchSize))
		case <-accTick.C:
			p.AcceptAccFrame(src.nextAccFrame(ecgBatchSize))
		case <-rrTick.C:
			p.AcceptRr(src.nextRr())
		case <-displayTick.C:
			p.Tick()
		case <-sigChan:
			log.Println("Shutting down...")
			cancel()
			p.Close()
			return
		case <-ctx.Done():
			return
		}
	}
}

// syntheticSource produces a plausible chest-strap ECG + accelerometer
// stream: a 1Hz cardiac cycle shaped as a rough QRS-T complex, small
// correlated motion noise, and jittered R-R intervals around 900ms.
type syntheticSource struct {
	fsEcg, fsAcc float64
	ecgPhase     float64
	accPhase     float64
	rng          *rand.Rand
}

func newSyntheticSource(fsEcg, fsAcc float64) *syntheticSource {
	return &syntheticSource{
		fsEcg: fsEcg,
		fsAcc: fsAcc,
		rng:   rand.New(rand.NewSource(1)),
	}
}

func (s *syntheticSource) nextEcgBatch(n int) []float64 {
	out := make([]float64, n)
	dt := 1.0 / s.fsEcg
	for i := 0; i < n; i++ {
		out[i] = qrstComplex(s.ecgPhase) + 0.02*s.rng.NormFloat64()
		s.ecgPhase += dt
		if s.ecgPhase >= 1.0 {
			s.ecgPhase -= 1.0
		}
	}
	return out
}

func (s *syntheticSource) nextAccFrame(n int) []ingress.AccRawSample {
	out := make([]ingress.AccRawSample, n)
	dt := 1.0 / s.fsAcc
	for i := 0; i < n; i++ {
		jitter := 2.0 * math.Sin(2*math.Pi*s.accPhase)
		out[i] = ingress.AccRawSample{X: jitter, Y: 0, Z: 100}
		s.accPhase += dt
		if s.accPhase >= 1.0 {
			s.accPhase -= 1.0
		}
	}
	return out
}

func (s *syntheticSource) nextRr() float64 {
	return 900 + s.rng.Float64()*20 - 10
}

// qrstComplex returns a rough P-QRS-T waveform shape for phase in [0, 1)
// of a 1Hz cardiac cycle.
func qrstComplex(phase float64) float64 {
	switch {
	case phase < 0.05:
		return 0.1 * math.Sin(2*math.Pi*phase/0.05) // P wave
	case phase < 0.15:
		return 0
	case phase < 0.18:
		return -0.15 * (phase - 0.15) / 0.03 // Q downslope
	case phase < 0.20:
		return -0.15 + 1.15*(phase-0.18)/0.02 // R upslope
	case phase < 0.22:
		return 1.0 - 1.25*(phase-0.20)/0.02 // R downslope into S
	case phase < 0.28:
		return -0.25 + 0.25*(phase-0.22)/0.06 // S recovery
	case phase < 0.45:
		return 0
	case phase < 0.60:
		return 0.3 * math.Sin(math.Pi*(phase-0.45)/0.15) // T wave
	default:
		return 0
	}
}
