package auth

import (
	"fmt"
	"sync"
	"time"

	"antirisk.com/intelligence-unit/internal/store"
)

// GateState is the launch gate's lifecycle state.
type GateState string

const (
	StateSplash   GateState = "SPLASH"
	StatePinSetup GateState = "PIN_SETUP"
	StatePinEntry GateState = "PIN_ENTRY"
	StateReady    GateState = "READY"
)

// Status is a snapshot of the gate for the caller to render.
type Status struct {
	State     GateState `json:"state"`
	InputLen  int       `json:"inputLen"`
	SetupStep int       `json:"setupStep"`
	PinError  bool      `json:"pinError"`
}

// Gate is the local PIN gate: SPLASH → (PIN_SETUP | PIN_ENTRY) → READY.
// It is a low-rigor launch gate, not a security boundary; there is no
// lockout and retries are unlimited.
type Gate struct {
	mu         sync.Mutex
	state      GateState
	input      string
	tempPIN    string
	setupStep  int
	pinError   bool
	credential string // stored hash, empty when unset
	slots      *store.SlotStore
	errorDelay time.Duration
}

// NewGate loads the stored credential and starts the splash timer. The gate
// moves to PIN_SETUP when no credential exists, PIN_ENTRY otherwise. An
// errorDelay of zero clears rejected input synchronously (used in tests).
func NewGate(slots *store.SlotStore, splash, errorDelay time.Duration) (*Gate, error) {
	credential, err := slots.LoadPINCredential()
	if err != nil {
		return nil, fmt.Errorf("failed to load PIN credential: %w", err)
	}

	g := &Gate{
		state:      StateSplash,
		setupStep:  1,
		credential: credential,
		slots:      slots,
		errorDelay: errorDelay,
	}
	if splash <= 0 {
		g.endSplashLocked()
	} else {
		time.AfterFunc(splash, g.endSplash)
	}
	return g, nil
}

func (g *Gate) endSplash() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endSplashLocked()
}

func (g *Gate) endSplashLocked() {
	if g.state != StateSplash {
		return
	}
	if g.credential == "" {
		g.state = StatePinSetup
	} else {
		g.state = StatePinEntry
	}
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked()
}

func (g *Gate) statusLocked() Status {
	return Status{State: g.state, InputLen: len(g.input), SetupStep: g.setupStep, PinError: g.pinError}
}

// Unlocked reports whether the gate has reached READY.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StateReady
}

// ResetInput clears the partially entered PIN.
func (g *Gate) ResetInput() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.input = ""
	g.pinError = false
}

// SubmitPIN feeds a full entry digit by digit.
func (g *Gate) SubmitPIN(pin string) (Status, error) {
	if !ValidPIN(pin) {
		return g.Status(), fmt.Errorf("PIN must be exactly %d digits", PINLength)
	}
	var (
		st  Status
		err error
	)
	for i := 0; i < len(pin); i++ {
		if st, err = g.PressDigit(pin[i]); err != nil {
			return st, err
		}
	}
	return st, nil
}

// PressDigit appends one digit. On the fourth digit the entry is evaluated:
// entry compares against the stored credential; setup requires two matching
// entries before the credential is written.
func (g *Gate) PressDigit(digit byte) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePinEntry && g.state != StatePinSetup {
		return g.statusLocked(), fmt.Errorf("gate is not accepting input in state %s", g.state)
	}
	if digit < '0' || digit > '9' {
		return g.statusLocked(), fmt.Errorf("invalid digit")
	}
	if len(g.input) >= PINLength {
		return g.statusLocked(), nil
	}

	g.input += string(digit)
	g.pinError = false
	if len(g.input) < PINLength {
		return g.statusLocked(), nil
	}

	if g.state == StatePinEntry {
		g.evaluateEntryLocked()
		return g.statusLocked(), nil
	}
	err := g.evaluateSetupLocked()
	return g.statusLocked(), err
}

func (g *Gate) evaluateEntryLocked() {
	if CheckPIN(g.input, g.credential) {
		g.input = ""
		g.state = StateReady
		return
	}
	g.pinError = true
	// Clear after a short delay so the rejected state stays observable.
	if g.errorDelay <= 0 {
		g.input = ""
		return
	}
	entered := g.input
	time.AfterFunc(g.errorDelay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.input == entered && g.pinError {
			g.input = ""
		}
	})
}

func (g *Gate) evaluateSetupLocked() error {
	if g.setupStep == 1 {
		g.tempPIN = g.input
		g.input = ""
		g.setupStep = 2
		return nil
	}

	if g.input != g.tempPIN {
		g.pinError = true
		g.setupStep = 1
		g.input = ""
		g.tempPIN = ""
		return nil
	}

	hash, err := HashPIN(g.input)
	if err != nil {
		return err
	}
	if err := g.slots.SavePINCredential(hash); err != nil {
		return fmt.Errorf("failed to store PIN credential: %w", err)
	}
	g.credential = hash
	g.input = ""
	g.tempPIN = ""
	g.state = StateReady
	return nil
}
