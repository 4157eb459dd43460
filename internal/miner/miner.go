// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package miner implements the built-in CPU miner: a long-lived controller
// that owns a cpulimiter.CpuLimiter, spawns one worker goroutine per
// logical CPU running the mining loop, coordinates start/stop, and
// periodically reports hash rate.
package miner

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/wire"

	"github.com/lynxcoins/Lynx/internal/addressselector"
	"github.com/lynxcoins/Lynx/internal/cpulimiter"
	"github.com/lynxcoins/Lynx/internal/lynxrules"
)

// innerNonceCap bounds how many nonces a worker tries against a single
// block template before refreshing it, matching the reference
// implementation's inner-loop cap.
const innerNonceCap = 0x10000

// pollInterval bounds every timed wait a worker performs (IBD gate,
// no-address backoff) so shutdown latency stays bounded.
const pollInterval = 200 * time.Millisecond

// noAddressBackoff is how long a worker waits after failing to resolve a
// reward address before retrying.
const noAddressBackoff = 30 * time.Second

// telemetryInterval is how often the telemetry goroutine samples and
// resets the hash counter.
const telemetryInterval = 5 * time.Second

// workerSpawnStagger is the delay between spawning successive workers so
// each starts against a distinct block-header timestamp.
const workerSpawnStagger = time.Second

type minerState int

const (
	stateStopped minerState = iota
	stateStarting
	stateRunning
	stateStopping
)

// Config holds the miner's mutable configuration. CPULimit and
// CheckSyncChain may only be changed while the miner is stopped.
type Config struct {
	CPULimit       float64
	CheckSyncChain bool
	MinerAddresses []string
	ConfPath       string
}

// AppInitArgs bundles the options AppInit wires into the miner, mirroring
// the CLI flags in cmd/lynxd/config.go.
type AppInitArgs struct {
	Config           Config
	DisableAutoStart bool
}

// Miner is a long-lived controller for the built-in CPU miner. The zero
// value is not usable; construct one with New.
type Miner struct {
	mu    sync.Mutex
	cfg   Config
	deps  Deps
	state minerState

	limiter  *cpulimiter.CpuLimiter
	selector *addressselector.Selector

	hashCounter atomic.Uint64

	quit     chan struct{}
	quitOnce *sync.Once
	wg       sync.WaitGroup
}

// New returns a new Miner with the given initial configuration and
// external collaborators. The miner starts in the Stopped state.
func New(cfg Config, deps Deps) *Miner {
	return &Miner{cfg: cfg, deps: deps}
}

// IsRunning reports whether the miner is currently in the Running state.
func (m *Miner) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateRunning
}

// GetCPULimit returns the currently configured CPU limit.
func (m *Miner) GetCPULimit() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.CPULimit
}

// SetCPULimit updates the CPU limit. It fails with ErrMinerBusy unless the
// miner is stopped, and with ErrInvalidLimit if limit is outside [0, 1].
func (m *Miner) SetCPULimit(limit float64) error {
	if limit < 0 || limit > 1 {
		return makeError(ErrInvalidLimit, "miner: cpu limit must be within [0, 1]")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateStopped {
		return makeError(ErrMinerBusy, "miner: cannot change cpu limit while running")
	}
	m.cfg.CPULimit = limit
	return nil
}

// GetCheckSyncChainFlag returns whether workers currently gate mining on
// initial-block-download status.
func (m *Miner) GetCheckSyncChainFlag() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.CheckSyncChain
}

// SetCheckSyncChainFlag updates the check-sync-chain flag. It fails with
// ErrMinerBusy unless the miner is stopped.
func (m *Miner) SetCheckSyncChainFlag(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateStopped {
		return makeError(ErrMinerBusy, "miner: cannot change check-sync-chain flag while running")
	}
	m.cfg.CheckSyncChain = enabled
	return nil
}

// Start transitions the miner from Stopped to Running, spawning one
// worker goroutine per logical CPU plus a telemetry goroutine. It fails
// with ErrAlreadyRunning if the miner is not currently stopped, or
// ErrNoWallet if neither a wallet nor any candidate mining addresses are
// configured.
//
// If any part of setup fails, Start unwinds whatever it started before
// returning the error.
func (m *Miner) Start() (err error) {
	m.mu.Lock()
	if m.state != stateStopped {
		m.mu.Unlock()
		return makeError(ErrAlreadyRunning, "miner: already running")
	}
	if m.deps.Wallet == nil && len(m.cfg.MinerAddresses) == 0 {
		m.mu.Unlock()
		return makeError(ErrNoWallet, "miner: no wallet and no mining addresses configured")
	}
	m.state = stateStarting
	cfg := m.cfg
	m.mu.Unlock()

	defer func() {
		if err != nil {
			m.Stop()
		}
	}()

	limiter, err := cpulimiter.New(cfg.CPULimit)
	if err != nil {
		m.mu.Lock()
		m.state = stateStopped
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.limiter = limiter
	m.selector = &addressselector.Selector{
		Wallet:     m.deps.Wallet,
		Chain:      m.deps.Chain,
		Params:     m.deps.RuleParams,
		NetParams:  m.deps.NetParams,
		Candidates: cfg.MinerAddresses,
		ConfPath:   cfg.ConfPath,
	}
	m.quit = make(chan struct{})
	m.quitOnce = new(sync.Once)
	m.hashCounter.Store(0)
	m.mu.Unlock()

	numWorkers := cpulimiter.CPUCount()
	m.wg.Add(numWorkers + 1)
	for i := 0; i < numWorkers; i++ {
		go m.worker(i)
		if i < numWorkers-1 {
			time.Sleep(workerSpawnStagger)
		}
	}
	go m.telemetry()

	m.mu.Lock()
	m.state = stateRunning
	m.mu.Unlock()

	log.Infof("Builtin miner started with %d workers, cpu limit %.2f", numWorkers, cfg.CPULimit)
	return nil
}

// Stop transitions the miner to Stopped, joining every worker and the
// telemetry goroutine before returning. It is idempotent: calling Stop on
// an already-stopped miner is a no-op.
func (m *Miner) Stop() {
	m.mu.Lock()
	if m.state == stateStopped {
		m.mu.Unlock()
		log.Debugf("%v", makeError(ErrNotRunning, "miner: stop called on an already-stopped miner"))
		return
	}
	m.state = stateStopping
	quit := m.quit
	quitOnce := m.quitOnce
	limiter := m.limiter
	m.mu.Unlock()

	if quitOnce != nil {
		quitOnce.Do(func() { close(quit) })
	}
	if limiter != nil {
		limiter.Stop()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.state = stateStopped
	m.limiter = nil
	m.selector = nil
	m.mu.Unlock()

	log.Infof("Builtin miner stopped")
}

// AppInit wires CLI-derived configuration into the miner and, unless
// DisableAutoStart is set, starts it.
func (m *Miner) AppInit(args AppInitArgs) error {
	m.mu.Lock()
	if m.state != stateStopped {
		m.mu.Unlock()
		return makeError(ErrMinerBusy, "miner: cannot re-initialize while running")
	}
	m.cfg = args.Config
	m.mu.Unlock()

	if args.DisableAutoStart {
		return nil
	}
	return m.Start()
}

// HelpString returns the usage text for the miner's command-line options.
func (m *Miner) HelpString() string {
	return "" +
		"  -disablebuiltinminer            Disable the built-in CPU miner\n" +
		"  -cpulimitforbuiltinminer=<0..1>  Fraction of total CPU to target (default 0.05)\n" +
		"  -disablechecksyncchain           Mine even while the chain is not believed current\n" +
		"  -mineraddress=A[,B,C]            Candidate reward addresses used when no wallet is attached\n" +
		"  -conf=<path>                     Configuration file path\n"
}

// worker runs one mining thread's loop until quit is closed.
func (m *Miner) worker(id int) {
	defer m.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	m.mu.Lock()
	limiter := m.limiter
	quit := m.quit
	m.mu.Unlock()

	limiter.Add(cpulimiter.ThreadID(id), cpulimiter.NewCurrentThreadClock())
	defer limiter.Remove(cpulimiter.ThreadID(id))

	if m.GetCheckSyncChainFlag() {
		if !m.waitForChainSync(quit) {
			return
		}
	}

	var cachedScript *addressselector.ReserveScript
	cachedHeight := int64(-1)

	for {
		select {
		case <-quit:
			return
		default:
		}

		limiter.SuspendMe()

		script, height, err := m.selector.GetScriptForMining(quit, cachedScript, cachedHeight)
		if err != nil {
			log.Warnf("BuiltinMiner: no appropriate address; sleeping 30 s: %v", err)
			if !m.interruptibleSleep(quit, noAddressBackoff) {
				return
			}
			continue
		}
		cachedScript, cachedHeight = script, height

		extraNonce, err := m.deps.Chain.IncrementExtraNonce()
		if err != nil {
			log.Warnf("BuiltinMiner: failed to increment extranonce: %v", err)
			continue
		}

		block, err := m.deps.Templates.NewBlockTemplate(script.Script, extraNonce)
		if err != nil || block == nil {
			log.Debugf("%v", makeError(ErrTemplateUnavailable, "miner: no block template available; retrying"))
			continue
		}

		if m.solveTemplate(quit, limiter, script, block, height) {
			cachedScript = nil
			cachedHeight = -1
		}
	}
}

// waitForChainSync polls IsInitialBlockDownload until it clears or quit is
// closed. It returns false if quit fired first.
func (m *Miner) waitForChainSync(quit chan struct{}) bool {
	for m.deps.Chain.IsInitialBlockDownload() {
		if !m.interruptibleSleep(quit, pollInterval) {
			return false
		}
	}
	return true
}

// interruptibleSleep blocks for d or until quit is closed, whichever comes
// first, breaking the wait into pollInterval-sized ticks. It returns false
// if quit fired.
func (m *Miner) interruptibleSleep(quit chan struct{}, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		tick := pollInterval
		if remaining < tick {
			tick = remaining
		}
		timer := time.NewTimer(tick)
		select {
		case <-timer.C:
		case <-quit:
			timer.Stop()
			return false
		}
	}
}

// solveTemplate iterates nonces for a single block template up to
// innerNonceCap, submitting the block on the first proof-of-work and
// rule3 success. It returns true once a block was successfully submitted,
// having called script.Keep to commit the reward script that earned it.
func (m *Miner) solveTemplate(quit chan struct{}, limiter *cpulimiter.CpuLimiter, script *addressselector.ReserveScript, block *wire.MsgBlock, tipHeight int64) bool {
	header := &block.Header

	for nonce := uint32(0); nonce < innerNonceCap; nonce++ {
		select {
		case <-quit:
			return false
		default:
		}

		header.Nonce = nonce
		m.hashCounter.Add(1)

		ok, err := m.deps.Pow.Check(header)
		if err != nil || !ok {
			limiter.SuspendMe()
			continue
		}

		log.Debugf("BuiltinMiner: found candidate block with nonce %d", nonce)

		tb := templateBlock{msg: block, params: m.deps.NetParams}
		rule3OK, err := lynxrules.Rule3(tb, tipHeight+1, m.deps.RuleParams, true)
		if err != nil || !rule3OK {
			limiter.SuspendMe()
			continue
		}

		if err := m.deps.Sink.Accept(block); err != nil {
			log.Warnf("BuiltinMiner: block submission failed: %v", err)
			return false
		}

		if err := script.Keep(); err != nil {
			log.Warnf("BuiltinMiner: failed to commit reward script: %v", err)
		}

		return true
	}

	return false
}

// telemetry samples and resets the hash counter every telemetryInterval,
// logging the resulting hash rate.
func (m *Miner) telemetry() {
	defer m.wg.Done()

	m.mu.Lock()
	quit := m.quit
	m.mu.Unlock()

	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count := m.hashCounter.Swap(0)
			speed := float64(count) / telemetryInterval.Seconds()
			log.Infof("BuiltinMiner: speed %.2f H/s", speed)
		case <-quit:
			return
		}
	}
}
