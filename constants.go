package main

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	defaultTickRate   = 15 // ticks per second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	defaultYardWidth  = 800.0
	defaultYardHeight = 600.0
	catHalf           = 14.0 // half-extent used when clamping to the yard
	wanderSpeed       = 60.0 // pixels per second
	attractSpeed      = 140.0
	wanderRetarget    = 4 * time.Second
	arriveDistance    = 12.0

	defaultGridCellSize = 150.0

	defaultStartingCats = 3
	petReach            = 40.0
	petEnergyGain       = 5.0
	maxEnergy           = 100.0
	energyDrainPerSec   = 0.2

	foodAttractRadius  = 150.0
	toyAttractRadius   = 120.0
	laserAttractRadius = 200.0
	defaultFoodTTL     = 30 * time.Second
	defaultToyTTL      = 60 * time.Second
	defaultLaserTTL    = 10 * time.Second
)
